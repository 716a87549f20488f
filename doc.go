// Package crashseverity predicts whether a traffic collision is severe from
// its location and casualty counts.
//
// A collision is severe when more than three people were killed or more than
// five were injured. The library loads collision CSV exports against a fixed
// schema, derives that label, rebalances the rare severe class with synthetic
// rows, trains a logistic-regression classifier and evaluates it with the
// area under the ROC curve. The ROC chart is drawn from the model's own test
// predictions.
//
// # Quick Start
//
// The crashsev command runs the whole workflow:
//
//	crashsev train -data ./collisions -out ./runs
//	crashsev score -model ./runs/<run-id>/model.json -data ./new-collisions
//
// The same steps are available as packages:
//
//	f, err := dataset.ReadPath(ctx, []string{"collisions/"}, dataset.ReadOptions{})
//	if err != nil {
//	    return err
//	}
//	labeled, err := labeling.NewLabeler().Apply(ctx, f)
//	if err != nil {
//	    return err
//	}
//	balanced, _, err := sampling.NewOversampler(42, labeling.NewLabeler()).Resample(ctx, labeled)
//	if err != nil {
//	    return err
//	}
//	parts, err := sampling.RandomSplit(balanced, []float64{0.8, 0.2}, 42)
//	...
//	model := linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(100))
//	if err := model.Fit(X, y); err != nil {
//	    return err
//	}
//	proba, _ := model.PositiveProba(XTest)
//	auc, _ := metrics.AUC(yTest, proba)
//
// # Packages
//
//   - config: Session and workflow settings (YAML, CRASHSEV_* environment)
//   - dataset: Arrow CSV ingest into gota frames
//   - labeling: Severity rule and class counts
//   - sampling: Synthetic oversampling and seeded random split
//   - preprocessing: Feature vector assembly and standardization
//   - sklearn/linear_model: Logistic regression
//   - metrics: AUC, ROC curve, PR, log loss, confusion matrix
//   - report: ROC and class balance charts
//   - export: Scored rows as Parquet
//   - artifact: Local directory or MinIO artifact storage
//   - pipeline: Staged train and score runs
//   - core/model, core/parallel: Estimator interfaces and goroutine fan-out
//   - pkg/errors, pkg/log: Structured errors, warnings and logging
package crashseverity
