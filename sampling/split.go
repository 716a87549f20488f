package sampling

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// SplitIndices assigns each of n rows to one partition by drawing a uniform
// number per row against the normalized cumulative weights. Partition sizes
// are approximate; the same seed always yields the same assignment.
func SplitIndices(n int, weights []float64, seed int64) ([][]int, error) {
	if len(weights) < 2 {
		return nil, errors.NewValueError("RandomSplit", "need at least two weights")
	}
	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.NewValidationError("weights", "must be finite and non-negative", weights)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, errors.NewValidationError("weights", "sum must be positive", weights)
	}

	cum := make([]float64, len(weights))
	var acc float64
	for i, w := range weights {
		acc += w / sum
		cum[i] = acc
	}
	cum[len(cum)-1] = 1.0

	parts := make([][]int, len(weights))
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for row := 0; row < n; row++ {
		u := rng.Float64()
		for p, c := range cum {
			if u < c {
				parts[p] = append(parts[p], row)
				break
			}
		}
	}
	return parts, nil
}

// RandomSplit partitions f by weights. The partitions are disjoint and
// together hold every row of f in its original order.
func RandomSplit(f *dataset.Frame, weights []float64, seed int64) ([]*dataset.Frame, error) {
	parts, err := SplitIndices(f.Nrow(), weights, seed)
	if err != nil {
		return nil, err
	}
	out := make([]*dataset.Frame, len(parts))
	for i, rows := range parts {
		if out[i], err = f.Subset(rows); err != nil {
			return nil, err
		}
	}
	return out, nil
}
