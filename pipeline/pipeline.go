// Package pipeline runs the collision severity workflow end to end.
//
// A training run goes through these stages:
//
//	load → label → counts → oversample → split → assemble → fit → predict → evaluate → artifacts
//
// Each stage is logged with its duration under a per-run UUID.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/artifact"
	"github.com/YuminosukeSato/crashseverity/config"
	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/labeling"
	"github.com/YuminosukeSato/crashseverity/metrics"
	"github.com/YuminosukeSato/crashseverity/performance"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
	"github.com/YuminosukeSato/crashseverity/preprocessing"
	"github.com/YuminosukeSato/crashseverity/report"
	"github.com/YuminosukeSato/crashseverity/sampling"
	lm "github.com/YuminosukeSato/crashseverity/sklearn/linear_model"
)

// Stage names.
const (
	StageLoad       = "load"
	StageLabel      = "label"
	StageCounts     = "counts"
	StageOversample = "oversample"
	StageSplit      = "split"
	StageAssemble   = "assemble"
	StageFit        = "fit"
	StagePredict    = "predict"
	StageEvaluate   = "evaluate"
	StageArtifacts  = "artifacts"
)

// Artifact keys.
const (
	KeyModel        = "model.json"
	KeyPredictions  = "predictions.parquet"
	KeySummary      = "summary.json"
	keyROC          = "roc"
	keyClassBalance = "class_balance"
)

// Pipeline executes one configured run.
type Pipeline struct {
	cfg    *config.Config
	logger log.Logger
	store  artifact.Store
	runID  string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to the "pipeline" named logger.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithStore overrides the artifact store selected by the output config.
func WithStore(s artifact.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithRunID fixes the run ID instead of generating a UUID.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// New validates cfg and prepares a run.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.NewValueError("pipeline.New", "config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("pipeline")
	}
	p.logger = p.logger.With(log.RunIDKey, p.runID, log.AppNameKey, cfg.Session.AppName)
	if p.store == nil {
		s, err := artifact.New(cfg.Output, p.runID)
		if err != nil {
			return nil, err
		}
		p.store = s
	}
	return p, nil
}

// RunID identifies this run in logs and artifact paths.
func (p *Pipeline) RunID() string { return p.runID }

// Result is what a training run produced. It is also written as summary.json.
type Result struct {
	RunID       string             `json:"runId"`
	AppName     string             `json:"appName"`
	Rows        int                `json:"rows"`
	Synthetic   int                `json:"synthetic"`
	Before      report.ClassCounts `json:"before"`
	After       report.ClassCounts `json:"after"`
	TrainRows   int                `json:"trainRows"`
	TestRows    int                `json:"testRows"`
	Dropped     int                `json:"dropped"`
	Features    []string           `json:"features"`
	Coef        []float64          `json:"coef"`
	Intercept   float64            `json:"intercept"`
	NIter       int                `json:"nIter"`
	Metric      string             `json:"metric"`
	MetricValue float64            `json:"metricValue"`
	Summary     *metrics.Summary   `json:"summary"`
	Artifacts   map[string]string  `json:"artifacts"`
}

// run holds intermediate values passed between stages.
type run struct {
	budget      *performance.MemoryBudget
	labeler     labeling.Labeler
	frame       *dataset.Frame
	train, test *dataset.Frame
	xTrain      *mat.Dense
	yTrain      *mat.VecDense
	xTest       *mat.Dense
	yTest       *mat.VecDense
	testKept    []int
	model       *lm.LogisticRegression
	proba       *mat.VecDense
	pred        []int
	roc         *report.Curve
}

// Run executes all stages and stores the artifacts.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	defer errors.Recover(&err, "pipeline.Run")

	cfg := p.cfg
	res = &Result{
		RunID:     p.runID,
		AppName:   cfg.Session.AppName,
		Metric:    cfg.Metric,
		Features:  append([]string(nil), cfg.Features.Columns...),
		Artifacts: map[string]string{},
	}
	r := &run{
		budget:  performance.NewMemoryBudget(cfg.Session.MemoryBytes()),
		labeler: p.labeler(),
	}
	start := time.Now()

	p.logger.Info("run started",
		"session.driver_memory", cfg.Session.DriverMemory,
		"session.memory_fraction", cfg.Session.MemoryFraction,
		log.WorkersKey, cfg.Session.Workers(),
	)

	stages := []struct {
		name string
		fn   func(context.Context, *run, *Result) error
	}{
		{StageLoad, p.load},
		{StageLabel, p.label},
		{StageCounts, p.counts},
		{StageOversample, p.oversample},
		{StageSplit, p.split},
		{StageAssemble, p.assemble},
		{StageFit, p.fit},
		{StagePredict, p.predict},
		{StageEvaluate, p.evaluate},
		{StageArtifacts, p.artifacts},
	}
	for _, s := range stages {
		if err := p.stage(ctx, s.name, func(ctx context.Context) error { return s.fn(ctx, r, res) }); err != nil {
			return nil, err
		}
	}

	p.logger.Info("run finished",
		log.MetricKey, res.Metric,
		log.MetricValue, res.MetricValue,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// stage runs fn and logs its duration, or its failure.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "stage %s", name)
	}
	start := time.Now()
	err := errors.SafeExecute(name, func() error { return fn(ctx) })
	if err != nil {
		p.logger.Error("stage failed", err, log.StageKey, name)
		return errors.Wrapf(err, "stage %s", name)
	}
	p.logger.Info("stage complete", log.StageKey, name, log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

func (p *Pipeline) labeler() labeling.Labeler {
	return labeling.Labeler{
		KilledAbove:  p.cfg.Label.KilledAbove,
		InjuredAbove: p.cfg.Label.InjuredAbove,
		Workers:      p.cfg.Session.Workers(),
	}
}

func (p *Pipeline) load(ctx context.Context, r *run, res *Result) error {
	f, err := dataset.ReadPath(ctx, p.cfg.Data.Paths, dataset.ReadOptions{
		ChunkSize: p.cfg.Data.ChunkSize,
		Logger:    p.logger,
		Workers:   p.cfg.Session.Workers(),
	})
	if err != nil {
		return err
	}
	if f.Nrow() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "input files contain no rows")
	}
	if err := r.budget.Allocate("collision frame", frameBytes(f)); err != nil {
		return err
	}
	r.frame = f
	res.Rows = f.Nrow()
	return nil
}

func (p *Pipeline) label(ctx context.Context, r *run, _ *Result) error {
	f, err := r.labeler.Apply(ctx, r.frame)
	if err != nil {
		return err
	}
	r.frame = f
	return nil
}

func (p *Pipeline) counts(_ context.Context, r *run, res *Result) error {
	neg, pos, err := labeling.ClassCounts(r.frame)
	if err != nil {
		return err
	}
	res.Before = report.ClassCounts{NotSevere: neg, Severe: pos}
	res.After = res.Before
	p.logger.Info("class counts", log.NegativeKey, neg, log.PositiveKey, pos)
	return nil
}

func (p *Pipeline) oversample(ctx context.Context, r *run, res *Result) error {
	if !p.cfg.Oversample.Enabled {
		p.logger.Debug("oversampling disabled")
		return nil
	}
	o := sampling.NewOversampler(p.cfg.Oversample.Seed, r.labeler)
	o.TargetRatio = p.cfg.Oversample.TargetRatio
	o.Logger = p.logger

	f, n, err := o.Resample(ctx, r.frame)
	if err != nil {
		return err
	}
	if err := r.budget.Allocate("synthetic rows", frameBytes(f)-frameBytes(r.frame)); err != nil {
		return err
	}
	neg, pos, err := labeling.ClassCounts(f)
	if err != nil {
		return err
	}
	r.frame = f
	res.Synthetic = n
	res.After = report.ClassCounts{NotSevere: neg, Severe: pos}
	return nil
}

func (p *Pipeline) split(_ context.Context, r *run, res *Result) error {
	parts, err := sampling.RandomSplit(r.frame,
		[]float64{p.cfg.Split.TrainWeight, p.cfg.Split.TestWeight}, p.cfg.Split.Seed)
	if err != nil {
		return err
	}
	r.train, r.test = parts[0], parts[1]
	if r.train.Nrow() == 0 || r.test.Nrow() == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "split left %d train and %d test rows", r.train.Nrow(), r.test.Nrow())
	}
	p.logger.Info("split", "data.train", r.train.Nrow(), "data.test", r.test.Nrow(), log.RandomSeedKey, p.cfg.Split.Seed)
	return nil
}

// cellBytes approximates the memory a gota frame holds per cell.
const cellBytes = 32

func frameBytes(f *dataset.Frame) int64 {
	return int64(f.Nrow()) * int64(len(f.Names())) * cellBytes
}

// design assembles features and the matching labels of f.
func design(va *preprocessing.VectorAssembler, f *dataset.Frame) (*mat.Dense, *mat.VecDense, []int, error) {
	X, kept, err := va.Transform(f)
	if err != nil {
		return nil, nil, nil, err
	}
	if X == nil {
		return nil, nil, nil, errors.Wrap(errors.ErrEmptyData, "no valid rows left after assembling features")
	}
	labels, err := labeling.Labels(f)
	if err != nil {
		return nil, nil, nil, err
	}
	y := mat.NewVecDense(len(kept), nil)
	for i, row := range kept {
		y.SetVec(i, float64(labels[row]))
	}
	return X, y, kept, nil
}

func (p *Pipeline) assemble(_ context.Context, r *run, res *Result) error {
	va := preprocessing.NewVectorAssembler(p.cfg.Features.Columns, p.cfg.Features.HandleInvalid)

	var err error
	var trainKept []int
	if r.xTrain, r.yTrain, trainKept, err = design(va, r.train); err != nil {
		return errors.Wrap(err, "train")
	}
	if r.xTest, r.yTest, r.testKept, err = design(va, r.test); err != nil {
		return errors.Wrap(err, "test")
	}
	rows, cols := r.xTrain.Dims()
	testRows, _ := r.xTest.Dims()
	if err := r.budget.Allocate("feature matrices", int64(rows+testRows)*int64(cols)*8); err != nil {
		return err
	}
	res.TrainRows = len(trainKept)
	res.TestRows = len(r.testKept)
	res.Dropped = r.train.Nrow() - len(trainKept) + r.test.Nrow() - len(r.testKept)
	if res.Dropped > 0 {
		p.logger.Warn("rows with missing features skipped", log.DroppedKey, res.Dropped)
	}
	return nil
}

func (p *Pipeline) fit(_ context.Context, r *run, res *Result) error {
	m := p.cfg.Model
	r.model = lm.NewLogisticRegression(
		lm.WithLRMaxIter(m.MaxIter),
		lm.WithLRTol(m.Tol),
		lm.WithLRRegParam(m.RegParam),
		lm.WithLogisticFitIntercept(m.FitIntercept),
		lm.WithLRStandardization(m.Standardization),
		lm.WithLRThreshold(m.Threshold),
		lm.WithLRSolver(m.Solver),
		lm.WithLRClassWeight(m.ClassWeight),
		lm.WithLRWorkers(p.cfg.Session.Workers()),
		lm.WithLRRandomState(p.cfg.Split.Seed),
		lm.WithLRFeatureNames(p.cfg.Features.Columns),
		lm.WithLRLogger(p.logger),
	)
	if err := r.model.Fit(r.xTrain, r.yTrain); err != nil {
		return err
	}
	res.Coef = r.model.Coef()
	res.Intercept = r.model.Intercept()
	res.NIter = r.model.NIter()
	return nil
}

func (p *Pipeline) predict(_ context.Context, r *run, _ *Result) error {
	proba, pred, err := scoreMatrix(r.model, r.xTest)
	if err != nil {
		return err
	}
	r.proba, r.pred = proba, pred
	p.logger.Debug("predicted", log.PredsKey, len(pred), log.ThresholdKey, r.model.Threshold())
	return nil
}

// scoreMatrix returns positive-class probabilities and predicted labels.
func scoreMatrix(m *lm.LogisticRegression, X mat.Matrix) (*mat.VecDense, []int, error) {
	proba, err := m.PositiveProba(X)
	if err != nil {
		return nil, nil, err
	}
	predM, err := m.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	n, _ := predM.Dims()
	pred := make([]int, n)
	for i := range pred {
		pred[i] = int(predM.At(i, 0))
	}
	return proba, pred, nil
}

func intsVec(xs []int) *mat.VecDense {
	v := mat.NewVecDense(len(xs), nil)
	for i, x := range xs {
		v.SetVec(i, float64(x))
	}
	return v
}

func (p *Pipeline) evaluate(_ context.Context, r *run, res *Result) error {
	ev := metrics.NewBinaryClassificationEvaluator(p.cfg.Metric)
	value, err := ev.Evaluate(r.yTest, r.proba)
	if err != nil {
		return err
	}
	res.MetricValue = value

	summary, err := metrics.Summarize(r.yTest, r.proba, intsVec(r.pred))
	if err != nil {
		return err
	}
	res.Summary = summary

	fpr, tpr, _, err := metrics.ROCCurve(r.yTest, r.proba)
	switch {
	case errors.Is(err, errors.ErrSingleClass):
		p.logger.Warn("test split holds a single class; ROC chart skipped", log.SamplesKey, r.yTest.Len())
	case err != nil:
		return err
	default:
		r.roc = &report.Curve{FPR: fpr, TPR: tpr}
	}

	p.logger.Info("evaluated",
		log.MetricKey, ev.MetricName,
		log.MetricValue, value,
		log.AccuracyKey, summary.Accuracy,
		log.LossKey, summary.LogLoss,
	)
	return nil
}
