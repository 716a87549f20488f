package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/export"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
	"github.com/YuminosukeSato/crashseverity/report"
)

func (p *Pipeline) artifacts(ctx context.Context, r *run, res *Result) error {
	format := p.cfg.Output.PlotFormat

	weights, err := r.model.ExportWeights()
	if err != nil {
		return err
	}
	weights.Metadata["run_id"] = p.runID
	weights.Metadata[res.Metric] = res.MetricValue
	modelJSON, err := weights.Encode()
	if err != nil {
		return err
	}
	if err := p.put(ctx, res.Artifacts, KeyModel, "application/json", modelJSON); err != nil {
		return err
	}

	if err := p.putPredictions(ctx, res.Artifacts, r.test, r.testKept, r.proba, r.pred); err != nil {
		return err
	}

	if r.roc != nil {
		chart, err := report.RenderROC(*r.roc, res.Summary.AreaUnderROC, format)
		if err != nil {
			return err
		}
		if err := p.putChart(ctx, res.Artifacts, keyROC+"."+format, format, chart); err != nil {
			return err
		}
	}

	balance, err := report.RenderClassBalance(res.Before, res.After, format)
	if err != nil {
		return err
	}
	if err := p.putChart(ctx, res.Artifacts, keyClassBalance+"."+format, format, balance); err != nil {
		return err
	}

	summary, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return p.put(ctx, res.Artifacts, KeySummary, "application/json", summary)
}

func (p *Pipeline) putPredictions(ctx context.Context, uris map[string]string, f *dataset.Frame, kept []int, proba *mat.VecDense, pred []int) error {
	rows, err := export.ScoredRows(f, kept, vecData(proba), pred)
	if err != nil {
		return err
	}
	b, err := export.EncodeScored(rows)
	if err != nil {
		return err
	}
	return p.put(ctx, uris, KeyPredictions, export.ContentType, b)
}

func (p *Pipeline) putChart(ctx context.Context, uris map[string]string, key, format string, chart io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := chart.WriteTo(&buf); err != nil {
		return errors.Wrapf(err, "render %s", key)
	}
	return p.put(ctx, uris, key, report.ContentType(format), buf.Bytes())
}

// put stores one artifact and records its URI in uris.
func (p *Pipeline) put(ctx context.Context, uris map[string]string, key, contentType string, data []byte) error {
	uri, err := p.store.Put(ctx, key, contentType, data)
	if err != nil {
		return errors.Wrapf(err, "store %s", key)
	}
	uris[key] = uri
	p.logger.Info("artifact stored", log.ArtifactKey, uri)
	return nil
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
