package export

import (
	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/labeling"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// ScoredRows joins model output back onto the frame it was computed from.
// kept lists the frame positions that reached the model, in the order of
// proba and pred. Unlabeled frames get label -1.
func ScoredRows(f *dataset.Frame, kept []int, proba []float64, pred []int) ([]ScoredRow, error) {
	if len(kept) != len(proba) || len(kept) != len(pred) {
		return nil, errors.NewDimensionError("ScoredRows", len(kept), len(proba), 0)
	}

	index, _, err := f.Ints(dataset.ColIndex)
	if err != nil {
		return nil, err
	}
	borough, _, err := f.Strings(dataset.ColBorough)
	if err != nil {
		return nil, err
	}
	lat, err := f.Float(dataset.ColLatitude)
	if err != nil {
		return nil, err
	}
	long, err := f.Float(dataset.ColLongitude)
	if err != nil {
		return nil, err
	}
	injured, _, err := f.Ints(dataset.ColInjured)
	if err != nil {
		return nil, err
	}
	killed, _, err := f.Ints(dataset.ColKilled)
	if err != nil {
		return nil, err
	}
	var labels []int
	if f.HasColumn(dataset.ColSeverity) {
		if labels, err = labeling.Labels(f); err != nil {
			return nil, err
		}
	}

	rows := make([]ScoredRow, len(kept))
	for i, r := range kept {
		if r < 0 || r >= f.Nrow() {
			return nil, errors.Newf("row %d out of range [0, %d)", r, f.Nrow())
		}
		label := int32(-1)
		if labels != nil {
			label = int32(labels[r])
		}
		rows[i] = ScoredRow{
			Index:       int32(index[r]),
			Borough:     borough[r],
			Latitude:    lat[r],
			Longitude:   long[r],
			Injured:     int32(injured[r]),
			Killed:      int32(killed[r]),
			Label:       label,
			Probability: proba[i],
			Prediction:  int32(pred[i]),
		}
	}
	return rows, nil
}
