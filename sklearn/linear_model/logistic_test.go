package linear_model

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
)

func quietLogger() LogisticRegressionOption {
	return WithLRLogger(log.NewTestLogger(log.LevelError))
}

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	// Class 0: points around (1, 1)
	// Class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	for _, solver := range []string{SolverLBFGS, SolverGD} {
		t.Run(solver, func(t *testing.T) {
			lr := NewLogisticRegression(
				WithLRSolver(solver),
				WithLRMaxIter(1000),
				WithLRRegParam(0.01),
				quietLogger(),
			)
			if err := lr.Fit(X, y); err != nil {
				t.Fatalf("Failed to fit model: %v", err)
			}

			predictions, err := lr.Predict(X)
			if err != nil {
				t.Fatalf("Failed to predict: %v", err)
			}
			for i := 0; i < 6; i++ {
				if predictions.At(i, 0) != y.At(i, 0) {
					t.Errorf("Sample %d: expected %v, got %v", i, y.At(i, 0), predictions.At(i, 0))
				}
			}

			XTest := mat.NewDense(2, 2, []float64{
				1.0, 1.0, // Should be class 0
				3.0, 3.0, // Should be class 1
			})
			testPreds, err := lr.Predict(XTest)
			if err != nil {
				t.Fatalf("Failed to predict on test data: %v", err)
			}
			if testPreds.At(0, 0) != 0 || testPreds.At(1, 0) != 1 {
				t.Errorf("unexpected test predictions %v", mat.Formatted(testPreds))
			}
			if lr.NIter() == 0 {
				t.Error("NIter should be recorded")
			}
		})
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(500), WithLRRegParam(0.1), quietLogger())
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Errorf("Expected probas shape (4, 2), got (%d, %d)", rows, cols)
	}

	predictions, _ := lr.Predict(X)
	for i := 0; i < rows; i++ {
		prob0, prob1 := probas.At(i, 0), probas.At(i, 1)
		if prob0 < 0 || prob0 > 1 || prob1 < 0 || prob1 > 1 {
			t.Errorf("Invalid probability at row %d: %v, %v", i, prob0, prob1)
		}
		if math.Abs(prob0+prob1-1.0) > 1e-12 {
			t.Errorf("Probabilities for sample %d don't sum to 1", i)
		}
		pred := int(predictions.At(i, 0))
		if pred == 0 && prob0 <= prob1 {
			t.Errorf("Sample %d: predicted class 0 but P(0)=%v <= P(1)=%v", i, prob0, prob1)
		}
		if pred == 1 && prob1 <= prob0 {
			t.Errorf("Sample %d: predicted class 1 but P(1)=%v <= P(0)=%v", i, prob1, prob0)
		}
	}

	// Margins and probabilities agree.
	z, err := lr.DecisionFunction(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < rows; i++ {
		if math.Abs(errors.Sigmoid(z.AtVec(i))-probas.At(i, 1)) > 1e-12 {
			t.Errorf("row %d: sigmoid(margin) != P(1)", i)
		}
	}
}

// TestLogisticRegression_Score tests accuracy calculation
func TestLogisticRegression_Score(t *testing.T) {
	// class 1 if sum of features > 1.5
	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 0, 1,
		0, 1, 0,
		0, 1, 1,
		1, 0, 0,
		1, 0, 1,
		1, 1, 0,
		1, 1, 1,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 1, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRC(10.0), quietLogger())
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if score < 0.75 {
		t.Errorf("Score too low: %v", score)
	}

	if _, err := lr.Score(X, mat.NewDense(2, 1, nil)); err == nil {
		t.Error("expected dimension error for mismatched labels")
	}
}

// TestLogisticRegression_Regularization tests L2 regularization
func TestLogisticRegression_Regularization(t *testing.T) {
	X := mat.NewDense(10, 5, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
		0, 0, 0, 0, 1,
		1, 1, 0, 0, 0,
		0, 1, 1, 0, 0,
		0, 0, 1, 1, 0,
		0, 0, 0, 1, 1,
		1, 0, 0, 0, 1,
	})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 1, 1, 0, 0, 1, 1, 1})

	lrStrong := NewLogisticRegression(WithLRC(0.01), WithLRMaxIter(1000), quietLogger())
	if err := lrStrong.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	lrWeak := NewLogisticRegression(WithLRC(100.0), WithLRMaxIter(1000), quietLogger())
	if err := lrWeak.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	norm := func(v []float64) float64 {
		s := 0.0
		for _, x := range v {
			s += x * x
		}
		return math.Sqrt(s)
	}
	strongNorm, weakNorm := norm(lrStrong.Coef()), norm(lrWeak.Coef())
	if strongNorm >= weakNorm {
		t.Errorf("Strong regularization should produce smaller weights: strong=%v, weak=%v",
			strongNorm, weakNorm)
	}
}

// TestLogisticRegression_StandardizationInvariance checks that the model
// learned with internal standardization is expressed in raw feature units.
func TestLogisticRegression_StandardizationInvariance(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	n := 200
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		lat := 40.5 + rng.Float64()*0.4
		injured := float64(rng.IntN(10))
		X.Set(i, 0, lat)
		X.Set(i, 1, injured)
		if injured+rng.NormFloat64() > 5 {
			y.Set(i, 0, 1)
		}
	}

	with := NewLogisticRegression(WithLRStandardization(true), WithLRRegParam(0), WithLRMaxIter(500), quietLogger())
	without := NewLogisticRegression(WithLRStandardization(false), WithLRRegParam(0), WithLRMaxIter(500), quietLogger())
	if err := with.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := without.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	pw, _ := with.PositiveProba(X)
	pwo, _ := without.PositiveProba(X)
	for i := 0; i < n; i++ {
		if math.Abs(pw.AtVec(i)-pwo.AtVec(i)) > 1e-2 {
			t.Fatalf("row %d: probabilities differ %v vs %v", i, pw.AtVec(i), pwo.AtVec(i))
		}
	}
}

func TestLogisticRegression_ClassWeightBalanced(t *testing.T) {
	// 9 negatives, 1 positive; the positive sits close to the negatives.
	X := mat.NewDense(10, 1, []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 1.0})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 1})

	plain := NewLogisticRegression(WithLRRegParam(0.1), quietLogger())
	balanced := NewLogisticRegression(WithLRRegParam(0.1), WithLRClassWeight(ClassWeightBalanced), quietLogger())
	if err := plain.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := balanced.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	p1, _ := plain.PositiveProba(X)
	p2, _ := balanced.PositiveProba(X)
	if p2.AtVec(9) <= p1.AtVec(9) {
		t.Errorf("balanced weighting should raise the minority probability: %v <= %v", p2.AtVec(9), p1.AtVec(9))
	}
}

func TestLogisticRegression_InvalidLabels(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	tests := []struct {
		name string
		y    []float64
	}{
		{"single class", []float64{1, 1, 1}},
		{"three classes", []float64{0, 1, 2}},
		{"fractional", []float64{0, 0.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLogisticRegression(quietLogger())
			if err := lr.Fit(X, mat.NewDense(3, 1, tt.y)); err == nil {
				t.Error("expected error")
			}
		})
	}

	lr := NewLogisticRegression(quietLogger())
	if err := lr.Fit(X, mat.NewDense(3, 1, []float64{1, 1, 1})); !errors.Is(err, errors.ErrSingleClass) {
		t.Errorf("expected ErrSingleClass, got %v", err)
	}
}

func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 0, 1, 1})
	lr := NewLogisticRegression(WithLRSolver(SolverGD), WithLRMaxIter(2), WithLRTol(1e-12), quietLogger())
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("non-convergence must not fail Fit: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
	var cw *errors.ConvergenceWarning
	if !errors.As(warnings[0], &cw) || cw.Iterations != 2 {
		t.Errorf("unexpected warning %v", warnings[0])
	}
}

// TestLogisticRegression_GetSetParams tests parameter management
func TestLogisticRegression_GetSetParams(t *testing.T) {
	lr := NewLogisticRegression()

	params := lr.GetParams()
	if params["max_iter"].(int) != 100 {
		t.Errorf("Default max_iter should be 100, got %v", params["max_iter"])
	}
	if params["solver"].(string) != SolverLBFGS {
		t.Errorf("Default solver should be lbfgs, got %v", params["solver"])
	}

	err := lr.SetParams(map[string]interface{}{
		"reg_param": 2.0,
		"max_iter":  200,
		"solver":    SolverGD,
		"tol":       1e-5,
	})
	if err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	if lr.regParam != 2.0 || lr.maxIter != 200 || lr.solver != SolverGD || lr.tol != 1e-5 {
		t.Errorf("params not updated: %v", lr.GetParams())
	}

	if err := lr.SetParams(map[string]interface{}{"penalty": "l1"}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if err := lr.SetParams(map[string]interface{}{"solver": "newton"}); err == nil {
		t.Error("expected validation error for unknown solver")
	}
}

// TestLogisticRegression_NotFitted tests error when predicting without fitting
func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	var nf *errors.NotFittedError
	if _, err := lr.Predict(X); !errors.As(err, &nf) {
		t.Errorf("Expected NotFittedError from Predict, got %v", err)
	}
	if _, err := lr.PredictProba(X); !errors.As(err, &nf) {
		t.Errorf("Expected NotFittedError from PredictProba, got %v", err)
	}
	if _, err := lr.ExportWeights(); !errors.As(err, &nf) {
		t.Errorf("Expected NotFittedError from ExportWeights, got %v", err)
	}
}

func TestLogisticRegression_DimensionMismatch(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	lr := NewLogisticRegression(WithLRRegParam(0.1), quietLogger())
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	var de *errors.DimensionError
	if _, err := lr.Predict(mat.NewDense(1, 3, nil)); !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}
	if err := lr.Fit(X, mat.NewDense(3, 1, nil)); !errors.As(err, &de) {
		t.Errorf("expected DimensionError for label rows, got %v", err)
	}
}
