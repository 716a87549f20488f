package model

import (
	"bytes"
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager("LogisticRegression")

	err := s.RequireFitted("Predict")
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
	if nf.ModelName != "LogisticRegression" || nf.Method != "Predict" {
		t.Errorf("unexpected error fields: %+v", nf)
	}

	s.SetFitted(4, 100)
	if err := s.RequireFitted("Predict"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if f, n := s.Dimensions(); f != 4 || n != 100 {
		t.Errorf("Dimensions() = %d, %d", f, n)
	}
	if err := s.RequireFeatures("Predict", 3); err == nil {
		t.Error("expected dimension error")
	}

	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear fitted state")
	}
}

func TestStateManager_Concurrent(t *testing.T) {
	s := NewStateManager("StandardScaler")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.SetFitted(n, n)
		}(i)
		go func() {
			defer wg.Done()
			_ = s.IsFitted()
			_, _ = s.Dimensions()
		}()
	}
	wg.Wait()
	if !s.IsFitted() {
		t.Error("expected fitted state")
	}
}

func TestModelWeights_RoundTrip(t *testing.T) {
	mw := &ModelWeights{
		ModelType:       "LogisticRegression",
		Version:         WeightsVersion,
		Coefficients:    []float64{0.1, -0.2, 1.5, 3.0},
		Intercept:       -2.5,
		Features:        []string{"LATITUDE", "LONGITUDE", "NUMBER OF PERSONS INJURED", "NUMBER OF PERSONS KILLED"},
		Classes:         []int{0, 1},
		Hyperparameters: map[string]interface{}{"max_iter": 100},
		IsFitted:        true,
	}

	mw.Seal()
	data, err := mw.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadWeights(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got.Intercept != mw.Intercept || len(got.Coefficients) != 4 || got.Features[3] != "NUMBER OF PERSONS KILLED" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if n, ok := got.Hyperparameters["max_iter"].(json.Number); !ok || n.String() != "100" {
		t.Errorf("max_iter = %#v", got.Hyperparameters["max_iter"])
	}

	mw.Coefficients[0] = 99
	if _, err := mw.Encode(); err == nil {
		t.Error("checksum should no longer match the coefficients")
	}
}

func TestModelWeights_Validate(t *testing.T) {
	tests := []struct {
		name string
		mw   ModelWeights
	}{
		{"missing type", ModelWeights{Version: WeightsVersion}},
		{"bad version", ModelWeights{ModelType: "LogisticRegression", Version: "0"}},
		{"fitted without coefficients", ModelWeights{ModelType: "LogisticRegression", Version: WeightsVersion, IsFitted: true}},
		{"unfitted with coefficients", ModelWeights{ModelType: "LogisticRegression", Version: WeightsVersion, Coefficients: []float64{1}}},
		{"feature mismatch", ModelWeights{ModelType: "LogisticRegression", Version: WeightsVersion, IsFitted: true, Coefficients: []float64{1, 2}, Features: []string{"a"}}},
		{"non-finite coefficient", ModelWeights{ModelType: "LogisticRegression", Version: WeightsVersion, IsFitted: true, Coefficients: []float64{math.NaN()}}},
		{"infinite intercept", ModelWeights{ModelType: "LogisticRegression", Version: WeightsVersion, IsFitted: true, Coefficients: []float64{1}, Intercept: math.Inf(1)}},
		{"bad checksum", ModelWeights{ModelType: "LogisticRegression", Version: WeightsVersion, IsFitted: true, Coefficients: []float64{1}, Metadata: map[string]interface{}{ChecksumKey: "deadbeef"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.mw.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
