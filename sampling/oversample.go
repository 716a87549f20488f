// Package sampling rebalances and partitions collision frames.
package sampling

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/labeling"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
)

// Oversampler adds synthetic minority-class rows to a labeled frame until the
// minority count reaches TargetRatio times the majority count.
type Oversampler struct {
	// TargetRatio is the wanted minority/majority ratio in (0, 1].
	TargetRatio float64
	// Seed makes the generated rows reproducible.
	Seed int64
	// Labeler supplies the thresholds synthetic counts must respect.
	Labeler labeling.Labeler
	Logger  log.Logger
}

// NewOversampler returns an Oversampler that fully balances the classes.
func NewOversampler(seed int64, l labeling.Labeler) *Oversampler {
	return &Oversampler{TargetRatio: 1.0, Seed: seed, Labeler: l}
}

// bounds of the observed numeric columns.
type bounds struct {
	latMin, latMax   float64
	longMin, longMax float64
	maxInjured       int
	maxKilled        int
	maxIndex         int
}

// Resample returns f with synthetic rows appended and the number of rows
// generated. A frame that already meets TargetRatio is returned as is.
func (o *Oversampler) Resample(ctx context.Context, f *dataset.Frame) (*dataset.Frame, int, error) {
	if o.TargetRatio <= 0 || o.TargetRatio > 1 {
		return nil, 0, errors.NewValidationError("TargetRatio", "must be in (0, 1]", o.TargetRatio)
	}
	labels, err := labeling.Labels(f)
	if err != nil {
		return nil, 0, err
	}
	if len(labels) == 0 {
		return nil, 0, errors.ErrEmptyData
	}

	var neg, pos int
	var minorityRows []int
	for _, v := range labels {
		if v == labeling.Severe {
			pos++
		} else {
			neg++
		}
	}
	minority := labeling.Minority(neg, pos)
	minorityCount, majorityCount := pos, neg
	if minority == labeling.NotSevere {
		minorityCount, majorityCount = neg, pos
	}
	if minorityCount == 0 {
		return nil, 0, errors.Wrapf(errors.ErrNoMinorityRows, "label %d", minority)
	}

	need := int(math.Ceil(o.TargetRatio*float64(majorityCount))) - minorityCount
	if need <= 0 {
		return f, 0, nil
	}
	for i, v := range labels {
		if v == minority {
			minorityRows = append(minorityRows, i)
		}
	}

	b, err := observedBounds(f)
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	synthetic, err := o.generate(f, need, minority, minorityRows, b)
	if err != nil {
		return nil, 0, err
	}
	out, err := f.Append(synthetic)
	if err != nil {
		return nil, 0, err
	}

	o.logger().Info("Synthetic rows generated",
		log.SyntheticKey, need,
		log.SamplesKey, out.Nrow(),
		log.RandomSeedKey, o.Seed,
	)
	return out, need, nil
}

func (o *Oversampler) logger() log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.GetLoggerWithName("sampling")
}

func observedBounds(f *dataset.Frame) (bounds, error) {
	b := bounds{
		latMin: math.NaN(), latMax: math.NaN(),
		longMin: math.NaN(), longMax: math.NaN(),
		maxIndex: -1,
	}
	lat, err := f.Float(dataset.ColLatitude)
	if err != nil {
		return b, err
	}
	long, err := f.Float(dataset.ColLongitude)
	if err != nil {
		return b, err
	}
	b.latMin, b.latMax = finiteRange(lat)
	b.longMin, b.longMax = finiteRange(long)

	for _, c := range []struct {
		name string
		dst  *int
	}{
		{dataset.ColInjured, &b.maxInjured},
		{dataset.ColKilled, &b.maxKilled},
		{dataset.ColIndex, &b.maxIndex},
	} {
		vals, valid, err := f.Ints(c.name)
		if err != nil {
			return b, err
		}
		for i, v := range vals {
			if valid[i] && v > *c.dst {
				*c.dst = v
			}
		}
	}
	return b, nil
}

// finiteRange returns the min and max of the non-NaN values, or NaN, NaN.
func finiteRange(xs []float64) (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if math.IsNaN(lo) || x < lo {
			lo = x
		}
		if math.IsNaN(hi) || x > hi {
			hi = x
		}
	}
	return lo, hi
}

func uniform(rng *rand.Rand, lo, hi float64) interface{} {
	if math.IsNaN(lo) {
		return nil
	}
	return lo + rng.Float64()*(hi-lo)
}

// intBetween draws uniformly from [lo, hi]. hi below lo collapses to lo.
func intBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// counts draws injured and killed counts whose severity equals label.
func (o *Oversampler) counts(rng *rand.Rand, label int, b bounds) (injured, killed int) {
	l := o.Labeler
	if label == labeling.NotSevere {
		return intBetween(rng, 0, l.InjuredAbove), intBetween(rng, 0, l.KilledAbove)
	}
	if rng.IntN(2) == 0 {
		killed = intBetween(rng, l.KilledAbove+1, b.maxKilled)
		injured = intBetween(rng, 0, b.maxInjured)
	} else {
		injured = intBetween(rng, l.InjuredAbove+1, b.maxInjured)
		killed = intBetween(rng, 0, b.maxKilled)
	}
	return injured, killed
}

func (o *Oversampler) generate(f *dataset.Frame, n, label int, minorityRows []int, b bounds) (*dataset.Frame, error) {
	rng := rand.New(rand.NewPCG(uint64(o.Seed), uint64(o.Seed)))

	text := map[string][]string{}
	textValid := map[string][]bool{}
	for _, name := range []string{dataset.ColCrashDate, dataset.ColCrashTime, dataset.ColBorough, dataset.ColZipCode} {
		vals, valid, err := f.Strings(name)
		if err != nil {
			return nil, err
		}
		text[name], textValid[name] = vals, valid
	}

	cols := map[string][]interface{}{}
	for _, name := range f.Names() {
		cols[name] = make([]interface{}, n)
	}

	for k := 0; k < n; k++ {
		tmpl := minorityRows[rng.IntN(len(minorityRows))]
		injured, killed := o.counts(rng, label, b)
		if o.Labeler.Severity(injured, killed) != label {
			return nil, errors.Newf("synthetic counts (%d, %d) do not carry label %d", injured, killed, label)
		}

		cols[dataset.ColIndex][k] = b.maxIndex + 1 + k
		cols[dataset.ColLatitude][k] = uniform(rng, b.latMin, b.latMax)
		cols[dataset.ColLongitude][k] = uniform(rng, b.longMin, b.longMax)
		cols[dataset.ColInjured][k] = injured
		cols[dataset.ColKilled][k] = killed
		cols[dataset.ColSeverity][k] = label
		for name, vals := range text {
			if textValid[name][tmpl] {
				cols[name][k] = vals[tmpl]
			}
		}
	}

	df := f.DataFrame()
	out := make([]series.Series, 0, len(f.Names()))
	for _, name := range f.Names() {
		out = append(out, series.New(cols[name], df.Col(name).Type(), name))
	}
	return dataset.FromSeries(out...)
}
