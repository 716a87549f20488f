package sampling

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/labeling"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
)

const csvHeader = "Index,CRASH DATE,CRASH TIME,BOROUGH,ZIP CODE,LATITUDE,LONGITUDE,NUMBER OF PERSONS INJURED,NUMBER OF PERSONS KILLED\n"

func labeledFrame(t *testing.T, body string) *dataset.Frame {
	t.Helper()
	f, err := dataset.ReadCSV(context.Background(), strings.NewReader(csvHeader+body), dataset.ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	f, err = labeling.NewLabeler().Apply(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

const imbalanced = `0,09/11/2021,2:39,QUEENS,11434,40.60,-73.90,0,0
1,03/26/2022,11:45,BROOKLYN,11208,40.70,-73.80,1,0
2,06/29/2022,6:55,,,40.65,-73.85,2,0
3,09/11/2021,9:35,BRONX,10475,40.80,-73.70,3,0
4,12/14/2021,8:13,BRONX,10475,40.75,-73.75,0,1
5,04/14/2021,12:47,MANHATTAN,10001,40.90,-73.60,8,5
`

func TestOversampler_Balances(t *testing.T) {
	f := labeledFrame(t, imbalanced)
	lg := log.NewTestLogger(log.LevelDebug)
	o := NewOversampler(42, labeling.NewLabeler())
	o.Logger = lg

	out, n, err := o.Resample(context.Background(), f)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if n != 4 {
		t.Errorf("synthetic rows = %d, want 4", n)
	}
	neg, pos, err := labeling.ClassCounts(out)
	if err != nil {
		t.Fatal(err)
	}
	if neg != 5 || pos != 5 {
		t.Errorf("class counts after oversampling = (%d, %d), want (5, 5)", neg, pos)
	}
	if !lg.ContainsField(log.SyntheticKey, float64(4)) {
		t.Errorf("expected synthetic count in log, got %s", lg.Output())
	}

	// Synthetic rows must be consistent with the labeling rule and bounds.
	relabeled, err := labeling.NewLabeler().Apply(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := labeling.Labels(out)
	got, _ := labeling.Labels(relabeled)
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("row %d: stored label %d, rule gives %d", i, want[i], got[i])
		}
	}

	lat, _ := out.Float(dataset.ColLatitude)
	idx, _, _ := out.Ints(dataset.ColIndex)
	for i := f.Nrow(); i < out.Nrow(); i++ {
		if lat[i] < 40.60 || lat[i] > 40.90 {
			t.Errorf("synthetic latitude %v outside observed bounds", lat[i])
		}
		if idx[i] != 6+(i-f.Nrow()) {
			t.Errorf("synthetic index %d at row %d", idx[i], i)
		}
	}
}

func TestOversampler_Deterministic(t *testing.T) {
	f := labeledFrame(t, imbalanced)
	a, _, err := NewOversampler(7, labeling.NewLabeler()).Resample(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := NewOversampler(7, labeling.NewLabeler()).Resample(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	la, _ := a.Float(dataset.ColLatitude)
	lb, _ := b.Float(dataset.ColLatitude)
	for i := range la {
		if la[i] != lb[i] && !(math.IsNaN(la[i]) && math.IsNaN(lb[i])) {
			t.Fatalf("row %d differs: %v vs %v", i, la[i], lb[i])
		}
	}
}

func TestOversampler_EdgeCases(t *testing.T) {
	t.Run("already balanced", func(t *testing.T) {
		f := labeledFrame(t, "0,,,,,40.6,-73.9,0,0\n1,,,,,40.7,-73.8,9,0\n")
		out, n, err := NewOversampler(1, labeling.NewLabeler()).Resample(context.Background(), f)
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 || out.Nrow() != 2 {
			t.Errorf("balanced frame changed: n=%d rows=%d", n, out.Nrow())
		}
	})

	t.Run("no minority rows", func(t *testing.T) {
		f := labeledFrame(t, "0,,,,,40.6,-73.9,0,0\n1,,,,,40.7,-73.8,1,0\n")
		_, _, err := NewOversampler(1, labeling.NewLabeler()).Resample(context.Background(), f)
		if !errors.Is(err, errors.ErrNoMinorityRows) {
			t.Errorf("expected ErrNoMinorityRows, got %v", err)
		}
	})

	t.Run("partial ratio", func(t *testing.T) {
		f := labeledFrame(t, imbalanced)
		o := NewOversampler(1, labeling.NewLabeler())
		o.TargetRatio = 0.5
		_, n, err := o.Resample(context.Background(), f)
		if err != nil {
			t.Fatal(err)
		}
		// ceil(0.5*5) - 1
		if n != 2 {
			t.Errorf("synthetic rows = %d, want 2", n)
		}
	})

	t.Run("invalid ratio", func(t *testing.T) {
		f := labeledFrame(t, imbalanced)
		o := NewOversampler(1, labeling.NewLabeler())
		o.TargetRatio = 1.5
		if _, _, err := o.Resample(context.Background(), f); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestSplitIndices(t *testing.T) {
	const n = 1000
	parts, err := SplitIndices(n, []float64{0.8, 0.2}, 42)
	if err != nil {
		t.Fatal(err)
	}

	seen := make([]bool, n)
	for _, p := range parts {
		for _, row := range p {
			if seen[row] {
				t.Fatalf("row %d in two partitions", row)
			}
			seen[row] = true
		}
	}
	for row, ok := range seen {
		if !ok {
			t.Fatalf("row %d not assigned", row)
		}
	}
	if len(parts[0]) < 700 || len(parts[0]) > 900 {
		t.Errorf("train partition size %d far from 800", len(parts[0]))
	}

	again, _ := SplitIndices(n, []float64{4, 1}, 42)
	if len(again[0]) != len(parts[0]) {
		t.Error("unnormalized weights with the same seed should give the same split")
	}
}

func TestSplitIndices_InvalidWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
	}{
		{"single", []float64{1}},
		{"negative", []float64{0.5, -0.5}},
		{"zero sum", []float64{0, 0}},
		{"nan", []float64{math.NaN(), 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SplitIndices(10, tt.weights, 42); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRandomSplit(t *testing.T) {
	f := labeledFrame(t, imbalanced)
	parts, err := RandomSplit(f, []float64{0.5, 0.5}, 42)
	if err != nil {
		t.Fatal(err)
	}
	if parts[0].Nrow()+parts[1].Nrow() != f.Nrow() {
		t.Errorf("split lost rows: %d + %d != %d", parts[0].Nrow(), parts[1].Nrow(), f.Nrow())
	}
	for _, p := range parts {
		if !p.HasColumn(dataset.ColSeverity) {
			t.Error("partitions should keep all columns")
		}
	}
}
