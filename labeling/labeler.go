// Package labeling derives the binary severity label of a collision.
package labeling

import (
	"context"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/crashseverity/core/parallel"
	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// Severity labels.
const (
	NotSevere = 0
	Severe    = 1
)

// Default thresholds. Both comparisons are strict.
const (
	DefaultKilledAbove  = 3
	DefaultInjuredAbove = 5
)

// Labeler marks a collision as severe when more than KilledAbove persons were
// killed or more than InjuredAbove persons were injured.
type Labeler struct {
	KilledAbove  int
	InjuredAbove int
	// Workers bounds the row fan-out. Zero means one worker per CPU.
	Workers int
}

// NewLabeler returns a Labeler with the default thresholds.
func NewLabeler() Labeler {
	return Labeler{KilledAbove: DefaultKilledAbove, InjuredAbove: DefaultInjuredAbove}
}

// Severity returns Severe or NotSevere for one collision.
func (l Labeler) Severity(injured, killed int) int {
	if killed > l.KilledAbove || injured > l.InjuredAbove {
		return Severe
	}
	return NotSevere
}

// Apply returns a copy of f with the severity column set. Null counts are
// read as zero.
func (l Labeler) Apply(ctx context.Context, f *dataset.Frame) (*dataset.Frame, error) {
	injured, injValid, err := f.Ints(dataset.ColInjured)
	if err != nil {
		return nil, err
	}
	killed, killValid, err := f.Ints(dataset.ColKilled)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := make([]int, f.Nrow())
	parallel.ParallelizeN(len(labels), l.Workers, func(_, start, end int) {
		for i := start; i < end; i++ {
			inj, k := injured[i], killed[i]
			if !injValid[i] {
				inj = 0
			}
			if !killValid[i] {
				k = 0
			}
			labels[i] = l.Severity(inj, k)
		}
	})

	return f.WithColumn(series.New(labels, series.Int, dataset.ColSeverity))
}

// Labels returns the severity column of a labeled frame.
func Labels(f *dataset.Frame) ([]int, error) {
	if !f.HasColumn(dataset.ColSeverity) {
		return nil, errors.NewValueError("Labels", "frame has no severity column; run Labeler.Apply first")
	}
	vals, valid, err := f.Ints(dataset.ColSeverity)
	if err != nil {
		return nil, err
	}
	for i, ok := range valid {
		if !ok {
			return nil, errors.Newf("severity is null at row %d", i)
		}
	}
	return vals, nil
}

// ClassCounts returns the number of NotSevere and Severe rows.
func ClassCounts(f *dataset.Frame) (neg, pos int, err error) {
	labels, err := Labels(f)
	if err != nil {
		return 0, 0, err
	}
	for _, v := range labels {
		if v == Severe {
			pos++
		} else {
			neg++
		}
	}
	return neg, pos, nil
}

// Minority returns the label with fewer rows. Ties resolve to Severe.
func Minority(neg, pos int) int {
	if neg < pos {
		return NotSevere
	}
	return Severe
}
