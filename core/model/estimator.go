package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測ラベルを返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// BinaryClassifier は二値分類モデルのインターフェース
type BinaryClassifier interface {
	Fitter
	Predictor

	// PredictProba は各クラスの確率 (n_samples × 2) を返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Score は正解率を返す
	Score(X, y mat.Matrix) (float64, error)
}

// WeightsExporter は重みをシリアライズ可能な形式で公開するモデル
type WeightsExporter interface {
	ExportWeights() (*ModelWeights, error)
}

// Transformer は列ごとの統計量を学習して行列を変換する
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// InverseTransformer は変換を元に戻せる Transformer
type InverseTransformer interface {
	Transformer
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}
