package linear_model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/crashseverity/core/model"
	"github.com/YuminosukeSato/crashseverity/core/parallel"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
	"github.com/YuminosukeSato/crashseverity/preprocessing"
)

const modelName = "LogisticRegression"

// Solvers.
const (
	SolverLBFGS = "lbfgs"
	SolverGD    = "gd"
)

// Class weighting modes.
const (
	ClassWeightNone     = "none"
	ClassWeightBalanced = "balanced"
)

// LogisticRegression is a binary logistic-regression classifier with optional
// L2 regularization. Features are standardized internally when Standardization
// is on; Coef and Intercept are always reported in the original feature space.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	maxIter         int     // Maximum iterations
	tol             float64 // Gradient-norm tolerance for stopping
	regParam        float64 // L2 strength (lambda)
	fitIntercept    bool    // Whether to fit intercept
	standardization bool    // Standardize features before optimizing
	threshold       float64 // Probability cut-off for the positive class
	solver          string  // "lbfgs" or "gd"
	classWeight     string  // "none" or "balanced"
	workers         int     // Goroutines for loss/gradient evaluation
	randomState     int64   // Recorded for reproducibility metadata
	features        []string

	// Model parameters
	coef_      []float64 // Coefficients in the original feature space
	intercept_ float64
	classes_   []int // Sorted labels: negative, positive
	nIter_     int

	logger log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:           model.NewStateManager(modelName),
		maxIter:         100,
		tol:             1e-6,
		regParam:        0.0,
		fitIntercept:    true,
		standardization: true,
		threshold:       0.5,
		solver:          SolverLBFGS,
		classWeight:     ClassWeightNone,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(lr)
	}
	if lr.logger == nil {
		lr.logger = log.GetLoggerWithName(modelName)
	}
	return lr
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLRRegParam sets the L2 regularization strength.
func WithLRRegParam(lambda float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.regParam = lambda }
}

// WithLRC sets the inverse regularization strength. It is shorthand for
// WithLRRegParam(1/c).
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		if c > 0 {
			lr.regParam = 1.0 / c
		}
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithLRStandardization sets whether features are standardized before fitting.
func WithLRStandardization(on bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.standardization = on }
}

// WithLRThreshold sets the probability threshold used by Predict.
func WithLRThreshold(threshold float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.threshold = threshold }
}

// WithLRSolver sets the optimization solver
func WithLRSolver(solver string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.solver = solver }
}

// WithLRClassWeight sets the class weighting mode.
func WithLRClassWeight(mode string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.classWeight = mode }
}

// WithLRWorkers bounds the goroutines used per loss evaluation.
func WithLRWorkers(n int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.workers = n }
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.randomState = seed }
}

// WithLRFeatureNames records the column names of X for exported weights.
func WithLRFeatureNames(names []string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.features = append([]string(nil), names...) }
}

// WithLRLogger sets the logger used during fitting.
func WithLRLogger(l log.Logger) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.logger = l }
}

func (lr *LogisticRegression) validateParams() error {
	switch {
	case lr.maxIter <= 0:
		return errors.NewValidationError("maxIter", "must be positive", lr.maxIter)
	case lr.tol < 0:
		return errors.NewValidationError("tol", "must be non-negative", lr.tol)
	case lr.regParam < 0:
		return errors.NewValidationError("regParam", "must be non-negative", lr.regParam)
	case lr.threshold < 0 || lr.threshold > 1:
		return errors.NewValidationError("threshold", "must be in [0, 1]", lr.threshold)
	case lr.solver != SolverLBFGS && lr.solver != SolverGD:
		return errors.NewValidationError("solver", "must be lbfgs or gd", lr.solver)
	case lr.classWeight != ClassWeightNone && lr.classWeight != ClassWeightBalanced:
		return errors.NewValidationError("classWeight", "must be none or balanced", lr.classWeight)
	}
	return nil
}

// Fit trains the model on X (n_samples × n_features) and the column vector y.
// y must contain exactly two distinct labels; the larger one is the positive
// class.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	if err := lr.validateParams(); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}
	if len(lr.features) > 0 && len(lr.features) != nFeatures {
		return errors.NewDimensionError("LogisticRegression.Fit", len(lr.features), nFeatures, 1)
	}

	if err := lr.extractClasses(y); err != nil {
		return err
	}

	logger := lr.logger.With(
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
	)
	logger.Info("Starting model training.",
		log.SolverKey, lr.solver,
		log.RegularizationKey, lr.regParam,
	)

	// Optimize in standardized space when requested. Without an intercept
	// the columns are only scaled so the surface still passes the origin.
	var scaler *preprocessing.StandardScaler
	Xs := mat.DenseCopyOf(X)
	if lr.standardization {
		scaler = preprocessing.NewStandardScaler(lr.fitIntercept, true)
		t, err := scaler.FitTransform(X)
		if err != nil {
			return err
		}
		Xs = mat.DenseCopyOf(t)
	} else if err := errors.CheckNumericalStability("LogisticRegression.Fit", Xs.RawMatrix().Data, 0); err != nil {
		return err
	}

	target := make([]float64, nSamples)
	for i := range target {
		if int(y.At(i, 0)) == lr.classes_[1] {
			target[i] = 1
		}
	}
	obj := &objective{
		X:            Xs,
		y:            target,
		w:            lr.sampleWeights(target),
		lambda:       lr.regParam,
		fitIntercept: lr.fitIntercept,
		workers:      lr.workers,
	}

	params := make([]float64, nFeatures+1)
	var nIter int
	var converged bool
	switch lr.solver {
	case SolverLBFGS:
		params, nIter, converged, err = lr.solveLBFGS(obj, params)
	default:
		params, nIter, converged, err = lr.solveGD(obj, params)
	}
	if err != nil {
		return errors.NewModelError("LogisticRegression.Fit", "optimization", err)
	}
	if err := errors.CheckNumericalStability("LogisticRegression.Fit", params, nIter); err != nil {
		return err
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning(modelName, nIter,
			fmt.Sprintf("solver %s stopped at max_iter; consider increasing max_iter", lr.solver)))
	}

	// Map back to the original feature space.
	lr.coef_ = make([]float64, nFeatures)
	lr.intercept_ = params[nFeatures]
	for j := 0; j < nFeatures; j++ {
		if scaler != nil {
			lr.coef_[j] = params[j] / scaler.Scale[j]
			lr.intercept_ -= params[j] * scaler.Mean[j] / scaler.Scale[j]
		} else {
			lr.coef_[j] = params[j]
		}
	}
	lr.nIter_ = nIter
	lr.state.SetFitted(nFeatures, nSamples)

	logger.Info("Model training completed.",
		log.IterationKey, nIter,
		log.LossKey, obj.Loss(params),
	)
	return nil
}

// extractClasses identifies the two class labels.
func (lr *LogisticRegression) extractClasses(y mat.Matrix) error {
	rows, _ := y.Dims()
	seen := make(map[int]bool)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || v != math.Trunc(v) {
			return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("label %v at row %d is not an integer", v, i))
		}
		seen[int(v)] = true
	}
	lr.classes_ = lr.classes_[:0]
	for c := range seen {
		lr.classes_ = append(lr.classes_, c)
	}
	sort.Ints(lr.classes_)

	switch {
	case len(lr.classes_) < 2:
		return errors.Wrapf(errors.ErrSingleClass, "classes %v", lr.classes_)
	case len(lr.classes_) > 2:
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("binary classifier got %d classes %v", len(lr.classes_), lr.classes_))
	}
	return nil
}

// sampleWeights returns per-row weights for the class weighting mode.
func (lr *LogisticRegression) sampleWeights(target []float64) []float64 {
	w := make([]float64, len(target))
	for i := range w {
		w[i] = 1
	}
	if lr.classWeight != ClassWeightBalanced {
		return w
	}
	pos := floats.Sum(target)
	neg := float64(len(target)) - pos
	n := float64(len(target))
	for i, t := range target {
		if t == 1 {
			w[i] = n / (2 * pos)
		} else {
			w[i] = n / (2 * neg)
		}
	}
	return w
}

func (lr *LogisticRegression) solveLBFGS(obj *objective, x0 []float64) ([]float64, int, bool, error) {
	problem := optimize.Problem{
		Func: obj.Loss,
		Grad: func(grad, x []float64) { obj.LossGrad(grad, x) },
	}
	settings := &optimize.Settings{
		MajorIterations:   lr.maxIter,
		GradientThreshold: lr.tol,
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, 0, false, err
	}
	if err != nil && result.Status != optimize.IterationLimit {
		// Line search failures near the optimum still leave a usable location.
		if result.Location.X == nil || math.IsInf(result.Location.F, 0) {
			return nil, result.MajorIterations, false, err
		}
		lr.logger.Debug("lbfgs stopped early", "status", result.Status.String(), "reason", err.Error())
	}
	return result.Location.X, result.MajorIterations, result.Status != optimize.IterationLimit, nil
}

// solveGD is plain gradient descent with a decaying step.
func (lr *LogisticRegression) solveGD(obj *objective, params []float64) ([]float64, int, bool, error) {
	grad := make([]float64, len(params))
	const baseLearningRate = 1.0
	for iter := 0; iter < lr.maxIter; iter++ {
		obj.LossGrad(grad, params)
		if err := errors.CheckNumericalStability("gradient_descent", grad, iter); err != nil {
			return nil, iter, false, err
		}
		if floats.Norm(grad, 2) < lr.tol {
			return params, iter, true, nil
		}
		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		floats.AddScaled(params, -learningRate, grad)
	}
	return params, lr.maxIter, false, nil
}

func (lr *LogisticRegression) margins(X mat.Matrix) ([]float64, error) {
	if err := lr.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression.Predict", nFeatures); err != nil {
		return nil, err
	}
	z := make([]float64, nSamples)
	parallel.ParallelizeN(nSamples, lr.workers, func(_, start, end int) {
		for i := start; i < end; i++ {
			s := lr.intercept_
			for j := 0; j < nFeatures; j++ {
				s += X.At(i, j) * lr.coef_[j]
			}
			z[i] = s
		}
	})
	return z, nil
}

// DecisionFunction returns the raw margin w·x + b for each row.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	z, err := lr.margins(X)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(z), z), nil
}

// PredictProba returns P(negative), P(positive) per row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	z, err := lr.margins(X)
	if err != nil {
		return nil, err
	}
	probas := mat.NewDense(len(z), 2, nil)
	for i, s := range z {
		p := errors.Sigmoid(s)
		probas.Set(i, 0, 1.0-p)
		probas.Set(i, 1, p)
	}
	return probas, nil
}

// PositiveProba returns P(positive) per row.
func (lr *LogisticRegression) PositiveProba(X mat.Matrix) (*mat.VecDense, error) {
	z, err := lr.margins(X)
	if err != nil {
		return nil, err
	}
	for i, s := range z {
		z[i] = errors.Sigmoid(s)
	}
	return mat.NewVecDense(len(z), z), nil
}

// Predict returns the predicted label per row as a column vector.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := lr.PositiveProba(X)
	if err != nil {
		return nil, err
	}
	n := p.Len()
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if p.AtVec(i) > lr.threshold {
			predictions.Set(i, 0, float64(lr.classes_[1]))
		} else {
			predictions.Set(i, 0, float64(lr.classes_[0]))
		}
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, yRows, 0)
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Coef returns a copy of the fitted coefficients.
func (lr *LogisticRegression) Coef() []float64 { return append([]float64(nil), lr.coef_...) }

// Intercept returns the fitted intercept.
func (lr *LogisticRegression) Intercept() float64 { return lr.intercept_ }

// Classes returns the negative and positive labels seen during Fit.
func (lr *LogisticRegression) Classes() []int { return append([]int(nil), lr.classes_...) }

// NIter returns the number of solver iterations used by the last Fit.
func (lr *LogisticRegression) NIter() int { return lr.nIter_ }

// Threshold returns the probability cut-off used by Predict.
func (lr *LogisticRegression) Threshold() float64 { return lr.threshold }

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool { return lr.state.IsFitted() }

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_iter":        lr.maxIter,
		"tol":             lr.tol,
		"reg_param":       lr.regParam,
		"fit_intercept":   lr.fitIntercept,
		"standardization": lr.standardization,
		"threshold":       lr.threshold,
		"solver":          lr.solver,
		"class_weight":    lr.classWeight,
		"random_state":    lr.randomState,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "tol":
			lr.tol, ok = value.(float64)
		case "reg_param":
			lr.regParam, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "standardization":
			lr.standardization, ok = value.(bool)
		case "threshold":
			lr.threshold, ok = value.(float64)
		case "solver":
			lr.solver, ok = value.(string)
		case "class_weight":
			lr.classWeight, ok = value.(string)
		case "random_state":
			lr.randomState, ok = value.(int64)
		default:
			return errors.NewValueError("LogisticRegression.SetParams", "unknown parameter: "+key)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	return lr.validateParams()
}
