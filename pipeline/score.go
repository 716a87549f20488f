package pipeline

import (
	"context"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/core/model"
	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/labeling"
	"github.com/YuminosukeSato/crashseverity/metrics"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
	"github.com/YuminosukeSato/crashseverity/preprocessing"
	lm "github.com/YuminosukeSato/crashseverity/sklearn/linear_model"
)

// ScoreResult describes a scoring run over new CSV files.
type ScoreResult struct {
	RunID  string `json:"runId"`
	Rows   int    `json:"rows"`
	Scored int    `json:"scored"`
	Severe int    `json:"severe"`

	// AreaUnderROC is set when the scored rows hold both classes.
	AreaUnderROC *float64          `json:"areaUnderROC,omitempty"`
	Artifacts    map[string]string `json:"artifacts"`
}

// LoadModel reads weights written by a training run.
func LoadModel(path string, opts ...lm.LogisticRegressionOption) (*lm.LogisticRegression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open model %s", path)
	}
	defer f.Close()

	weights, err := model.ReadWeights(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", path)
	}
	return lm.NewFromWeights(weights, opts...)
}

// Score applies a persisted model to the CSV files in paths and stores the
// scored rows as predictions.parquet. Rows are labeled with the configured
// thresholds so the result can report AUC when both classes are present.
func (p *Pipeline) Score(ctx context.Context, weightsPath string, paths []string) (res *ScoreResult, err error) {
	defer errors.Recover(&err, "pipeline.Score")

	start := time.Now()
	res = &ScoreResult{RunID: p.runID, Artifacts: map[string]string{}}

	m, err := LoadModel(weightsPath, lm.WithLRWorkers(p.cfg.Session.Workers()), lm.WithLRLogger(p.logger))
	if err != nil {
		return nil, err
	}
	cols := m.FeatureNames()
	if len(cols) == 0 {
		cols = p.cfg.Features.Columns
	}

	f, err := dataset.ReadPath(ctx, paths, dataset.ReadOptions{
		ChunkSize: p.cfg.Data.ChunkSize,
		Logger:    p.logger,
		Workers:   p.cfg.Session.Workers(),
	})
	if err != nil {
		return nil, err
	}
	res.Rows = f.Nrow()
	if f.Nrow() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "input files contain no rows")
	}
	if f, err = p.labeler().Apply(ctx, f); err != nil {
		return nil, err
	}

	va := preprocessing.NewVectorAssembler(cols, p.cfg.Features.HandleInvalid)
	X, y, kept, err := design(va, f)
	if err != nil {
		return nil, err
	}
	proba, pred, err := scoreMatrix(m, X)
	if err != nil {
		return nil, err
	}
	res.Scored = len(pred)
	for _, v := range pred {
		if v == labeling.Severe {
			res.Severe++
		}
	}

	// 片方のクラスしかないバッチでは AUC は定義されない
	if neg, pos := classSplit(y); neg > 0 && pos > 0 {
		auc, err := metrics.AUC(y, proba)
		if err != nil {
			return nil, err
		}
		res.AreaUnderROC = &auc
	}

	if err := p.putPredictions(ctx, res.Artifacts, f, kept, proba, pred); err != nil {
		return nil, err
	}

	p.logger.Info("scored",
		log.SamplesKey, res.Scored,
		log.PositiveKey, res.Severe,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

func classSplit(y *mat.VecDense) (neg, pos int) {
	for i := 0; i < y.Len(); i++ {
		if y.AtVec(i) == float64(labeling.Severe) {
			pos++
		} else {
			neg++
		}
	}
	return neg, pos
}
