package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// WeightsVersion は model.json の形式バージョン
const WeightsVersion = "1"

// ChecksumKey は Metadata に保存する係数チェックサムのキー
const ChecksumKey = "checksum"

// ModelWeights は学習済み線形モデルを model.json として保存する形式。
// 係数は標準化前の特徴量空間で保存するため、読み込み側は生の特徴量をそのまま使える。
type ModelWeights struct {
	ModelType    string    `json:"model_type"`
	Version      string    `json:"version"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`

	// Features は学習時の特徴量列の順序
	Features []string `json:"features,omitempty"`

	// Classes は (負例, 正例) のラベル
	Classes []int `json:"classes,omitempty"`

	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は run id、評価値、学習行数、チェックサムなど
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	IsFitted bool `json:"is_fitted"`
}

// Checksum は係数と切片の SHA-256 を16進で返す。
// JSON を経由しても float64 は往復で一致するので、保存前後の比較に使える。
func Checksum(coef []float64, intercept float64) string {
	buf, _ := json.Marshal(append(append([]float64(nil), coef...), intercept))
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// Seal は現在の係数のチェックサムを Metadata に記録する。
func (mw *ModelWeights) Seal() {
	if mw.Metadata == nil {
		mw.Metadata = map[string]interface{}{}
	}
	mw.Metadata[ChecksumKey] = Checksum(mw.Coefficients, mw.Intercept)
}

// Encode はインデント付き JSON にする。
func (mw *ModelWeights) Encode() ([]byte, error) {
	if err := mw.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mw); err != nil {
		return nil, errors.Wrap(err, "encode model weights")
	}
	return buf.Bytes(), nil
}

// ReadWeights は model.json を読み込み検証する。
func ReadWeights(r io.Reader) (*ModelWeights, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	mw := &ModelWeights{}
	if err := dec.Decode(mw); err != nil {
		return nil, errors.Wrap(err, "decode model weights")
	}
	if err := mw.Validate(); err != nil {
		return nil, err
	}
	return mw, nil
}

// Validate は形式と係数の整合性を検証する。
// Metadata にチェックサムがあれば係数と一致することも確認する。
func (mw *ModelWeights) Validate() error {
	switch {
	case mw.ModelType == "":
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	case mw.Version != WeightsVersion:
		return errors.NewValidationError("version", "unsupported weights version", mw.Version)
	case mw.IsFitted && len(mw.Coefficients) == 0:
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	case !mw.IsFitted && len(mw.Coefficients) > 0:
		return errors.NewValidationError("coefficients", "unfitted model should not have coefficients", len(mw.Coefficients))
	case len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients):
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients), len(mw.Features), 1)
	}
	if math.IsNaN(mw.Intercept) || math.IsInf(mw.Intercept, 0) {
		return errors.NewValidationError("intercept", "must be finite", mw.Intercept)
	}
	if err := errors.CheckNumericalStability("ModelWeights.Validate", mw.Coefficients, 0); err != nil {
		return err
	}
	if want, ok := mw.Metadata[ChecksumKey].(string); ok {
		if got := Checksum(mw.Coefficients, mw.Intercept); got != want {
			return errors.NewValidationError(ChecksumKey, "does not match coefficients", want)
		}
	}
	return nil
}
