package metrics

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

func vec(xs ...float64) *mat.VecDense { return mat.NewVecDense(len(xs), xs) }

func TestROCCurve(t *testing.T) {
	fpr, tpr, thr, err := ROCCurve(vec(0, 0, 1, 1), vec(0.1, 0.2, 0.8, 0.9))
	if err != nil {
		t.Fatal(err)
	}
	wantFPR := []float64{0, 0, 0, 0.5, 1}
	wantTPR := []float64{0, 0.5, 1, 1, 1}
	if len(fpr) != len(wantFPR) {
		t.Fatalf("got %d points, want %d", len(fpr), len(wantFPR))
	}
	for i := range wantFPR {
		if fpr[i] != wantFPR[i] || tpr[i] != wantTPR[i] {
			t.Errorf("point %d = (%v, %v), want (%v, %v)", i, fpr[i], tpr[i], wantFPR[i], wantTPR[i])
		}
	}
	if !math.IsInf(thr[0], 1) || thr[1] != 0.9 {
		t.Errorf("unexpected thresholds %v", thr)
	}
}

func TestROCCurve_TiesCollapse(t *testing.T) {
	fpr, tpr, _, err := ROCCurve(vec(0, 1, 0, 1), vec(0.5, 0.5, 0.5, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	if len(fpr) != 2 || fpr[1] != 1 || tpr[1] != 1 {
		t.Errorf("tied scores should give a single diagonal segment, got %v %v", fpr, tpr)
	}
}

func TestROCCurve_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 500
	labels := make([]float64, n)
	scores := make([]float64, n)
	for i := range labels {
		if rng.Float64() < 0.3 {
			labels[i] = 1
		}
		scores[i] = math.Round((labels[i]*0.3+rng.Float64())*20) / 20
	}
	y, s := vec(labels...), vec(scores...)

	fpr, tpr, _, err := ROCCurve(y, s)
	if err != nil {
		t.Fatal(err)
	}
	last := len(fpr) - 1
	if fpr[0] != 0 || tpr[0] != 0 || fpr[last] != 1 || tpr[last] != 1 {
		t.Errorf("curve must run from (0,0) to (1,1)")
	}
	for i := 1; i < len(fpr); i++ {
		if fpr[i] < fpr[i-1] || tpr[i] < tpr[i-1] {
			t.Fatalf("curve not monotone at %d", i)
		}
	}

	// Trapezoidal area under the curve equals the rank-based AUC.
	var area float64
	for i := 1; i < len(fpr); i++ {
		area += (fpr[i] - fpr[i-1]) * (tpr[i] + tpr[i-1]) / 2
	}
	auc, err := AUC(y, s)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(area-auc) > 1e-9 {
		t.Errorf("trapezoid area %v != AUC %v", area, auc)
	}
}

func TestROCCurve_SingleClass(t *testing.T) {
	if _, _, _, err := ROCCurve(vec(1, 1), vec(0.2, 0.4)); !errors.Is(err, errors.ErrSingleClass) {
		t.Errorf("expected ErrSingleClass, got %v", err)
	}
}

func TestAreaUnderPR(t *testing.T) {
	got, err := AreaUnderPR(vec(0, 0, 1, 1), vec(0.1, 0.2, 0.8, 0.9))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("perfect ranking area = %v, want 1", got)
	}

	got, err = AreaUnderPR(vec(1, 0, 1, 0), vec(0.9, 0.8, 0.7, 0.6))
	if err != nil {
		t.Fatal(err)
	}
	// (0,1) (0.5,1) (0.5,0.5) (1,0.667) (1,0.5)
	want := 0.5*1 + 0.5*(0.5+2.0/3.0)/2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("area = %v, want %v", got, want)
	}
}

func TestConfusionMatrix(t *testing.T) {
	cm, err := NewConfusionMatrix(vec(0, 0, 1, 1, 1), vec(0, 1, 1, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if cm != (ConfusionMatrix{TN: 1, FP: 1, FN: 1, TP: 2}) {
		t.Errorf("unexpected matrix %+v", cm)
	}
	if math.Abs(cm.Precision()-2.0/3.0) > 1e-12 || math.Abs(cm.Recall()-2.0/3.0) > 1e-12 {
		t.Errorf("precision/recall = %v/%v", cm.Precision(), cm.Recall())
	}
	if math.Abs(cm.F1()-2.0/3.0) > 1e-12 {
		t.Errorf("F1 = %v", cm.F1())
	}
	if (ConfusionMatrix{}).F1() != 0 {
		t.Error("empty matrix F1 should be 0")
	}
	if _, err := NewConfusionMatrix(vec(0, 2), vec(0, 1)); err == nil {
		t.Error("expected error for non-binary labels")
	}
}

func TestBinaryClassificationEvaluator(t *testing.T) {
	labels := vec(0, 0, 1, 1)
	scores := vec(0.1, 0.4, 0.35, 0.8)

	tests := []struct {
		metric  string
		want    float64
		wantErr bool
	}{
		{"", 0.75, false},
		{MetricAreaUnderROC, 0.75, false},
		{MetricAreaUnderPR, 0.0, false},
		{"accuracy", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			got, err := NewBinaryClassificationEvaluator(tt.metric).Evaluate(labels, scores)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr || tt.metric == MetricAreaUnderPR {
				return
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUC_SingleClassWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	got, err := NewBinaryClassificationEvaluator(MetricAreaUnderROC).Evaluate(vec(0, 0, 0), vec(0.1, 0.5, 0.9))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.5 {
		t.Errorf("single-class AUC = %v, want 0.5", got)
	}
	var uw *errors.UndefinedMetricWarning
	if len(warnings) != 1 || !errors.As(warnings[0], &uw) {
		t.Errorf("expected one UndefinedMetricWarning, got %v", warnings)
	}
}

func TestSummarize(t *testing.T) {
	labels := vec(0, 0, 1, 1)
	proba := vec(0.1, 0.6, 0.7, 0.9)
	pred := vec(0, 1, 1, 1)

	s, err := Summarize(labels, proba, pred)
	if err != nil {
		t.Fatal(err)
	}
	if s.AreaUnderROC != 1.0 {
		t.Errorf("AUC = %v", s.AreaUnderROC)
	}
	if s.Accuracy != 0.75 || s.Confusion.FP != 1 || s.Recall != 1.0 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.AvgPrecision != 1.0 {
		t.Errorf("average precision = %v", s.AvgPrecision)
	}
}
