package linear_model

import (
	"encoding/json"
	"fmt"

	"github.com/YuminosukeSato/crashseverity/core/model"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

var _ model.BinaryClassifier = (*LogisticRegression)(nil)
var _ model.WeightsExporter = (*LogisticRegression)(nil)

// ExportWeights はモデルの重みをエクスポート（完全な再現性を保証）
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted("ExportWeights"); err != nil {
		return nil, err
	}
	nFeatures, nSamples := lr.state.Dimensions()

	weights := &model.ModelWeights{
		ModelType:       modelName,
		Version:         model.WeightsVersion,
		Coefficients:    lr.Coef(),
		Intercept:       lr.intercept_,
		Features:        append([]string(nil), lr.features...),
		Classes:         lr.Classes(),
		IsFitted:        true,
		Hyperparameters: lr.GetParams(),
		Metadata: map[string]interface{}{
			"n_features": nFeatures,
			"n_samples":  nSamples,
			"n_iter":     lr.nIter_,
		},
	}
	weights.Seal()
	return weights, nil
}

// ImportWeights はモデルの重みをインポートし、学習済み状態にする
func (lr *LogisticRegression) ImportWeights(weights *model.ModelWeights) error {
	if weights == nil {
		return errors.NewValueError("LogisticRegression.ImportWeights", "weights cannot be nil")
	}
	if err := weights.Validate(); err != nil {
		return err
	}
	if weights.ModelType != modelName {
		return errors.NewValidationError("model_type", "expected "+modelName, weights.ModelType)
	}
	if !weights.IsFitted {
		return errors.NewNotFittedError(modelName, "ImportWeights")
	}
	if len(weights.Classes) != 2 {
		return errors.NewValidationError("classes", "binary model needs two classes", weights.Classes)
	}

	// JSON経由の数値はfloat64になるため型を合わせる
	hp := weights.Hyperparameters
	if v, ok := number(hp["threshold"]); ok {
		lr.threshold = v
	}
	if v, ok := number(hp["reg_param"]); ok {
		lr.regParam = v
	}
	if v, ok := number(hp["tol"]); ok {
		lr.tol = v
	}
	if v, ok := number(hp["max_iter"]); ok {
		lr.maxIter = int(v)
	}
	if v, ok := number(hp["random_state"]); ok {
		lr.randomState = int64(v)
	}
	if v, ok := hp["fit_intercept"].(bool); ok {
		lr.fitIntercept = v
	}
	if v, ok := hp["standardization"].(bool); ok {
		lr.standardization = v
	}
	if v, ok := hp["solver"].(string); ok {
		lr.solver = v
	}
	if v, ok := hp["class_weight"].(string); ok {
		lr.classWeight = v
	}
	if err := lr.validateParams(); err != nil {
		return err
	}

	lr.coef_ = append([]float64(nil), weights.Coefficients...)
	lr.intercept_ = weights.Intercept
	lr.classes_ = append([]int(nil), weights.Classes...)
	lr.features = append([]string(nil), weights.Features...)
	nSamples := 0
	if v, ok := number(weights.Metadata["n_samples"]); ok {
		nSamples = int(v)
	}
	if v, ok := number(weights.Metadata["n_iter"]); ok {
		lr.nIter_ = int(v)
	}
	lr.state.SetFitted(len(lr.coef_), nSamples)
	return nil
}

// NewFromWeights は保存済みの重みから学習済みモデルを復元する
func NewFromWeights(weights *model.ModelWeights, opts ...LogisticRegressionOption) (*LogisticRegression, error) {
	lr := NewLogisticRegression(opts...)
	if err := lr.ImportWeights(weights); err != nil {
		return nil, err
	}
	return lr, nil
}

// FeatureNames returns the column names recorded at training time.
func (lr *LogisticRegression) FeatureNames() []string { return append([]string(nil), lr.features...) }

// GetWeightHash calculates the hash value of weights (for verification)
func (lr *LogisticRegression) GetWeightHash() string {
	if !lr.state.IsFitted() {
		return ""
	}
	return model.Checksum(lr.coef_, lr.intercept_)
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// String returns a short description of the model.
func (lr *LogisticRegression) String() string {
	if !lr.state.IsFitted() {
		return fmt.Sprintf("LogisticRegression(solver=%s, reg_param=%g)", lr.solver, lr.regParam)
	}
	return fmt.Sprintf("LogisticRegression(solver=%s, reg_param=%g, n_features=%d)", lr.solver, lr.regParam, len(lr.coef_))
}
