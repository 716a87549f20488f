package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// 評価指標名
const (
	MetricAreaUnderROC = "areaUnderROC"
	MetricAreaUnderPR  = "areaUnderPR"
)

// BinaryClassificationEvaluator はラベルとスコアから1つの評価指標を計算する
type BinaryClassificationEvaluator struct {
	// MetricName は "areaUnderROC" (デフォルト) または "areaUnderPR"
	MetricName string
}

// NewBinaryClassificationEvaluator は新しい評価器を作成する
func NewBinaryClassificationEvaluator(metric string) *BinaryClassificationEvaluator {
	if metric == "" {
		metric = MetricAreaUnderROC
	}
	return &BinaryClassificationEvaluator{MetricName: metric}
}

// Evaluate は指標値を返す。scores は正例クラスの確率または生スコア。
func (e *BinaryClassificationEvaluator) Evaluate(labels, scores *mat.VecDense) (float64, error) {
	switch e.metric() {
	case MetricAreaUnderROC:
		return AUC(labels, scores)
	case MetricAreaUnderPR:
		return AreaUnderPR(labels, scores)
	default:
		return 0, errors.NewValidationError("MetricName", "must be areaUnderROC or areaUnderPR", e.MetricName)
	}
}

// IsLargerBetter は指標が大きいほど良いかを返す
func (e *BinaryClassificationEvaluator) IsLargerBetter() bool { return true }

func (e *BinaryClassificationEvaluator) metric() string {
	if e.MetricName == "" {
		return MetricAreaUnderROC
	}
	return e.MetricName
}

// Summary はテストデータに対する主要な評価値をまとめたもの
type Summary struct {
	AreaUnderROC float64         `json:"areaUnderROC"`
	AreaUnderPR  float64         `json:"areaUnderPR"`
	AvgPrecision float64         `json:"averagePrecision"`
	LogLoss      float64         `json:"logLoss"`
	Accuracy     float64         `json:"accuracy"`
	Confusion    ConfusionMatrix `json:"confusion"`
	Precision    float64         `json:"precision"`
	Recall       float64         `json:"recall"`
	F1           float64         `json:"f1"`
}

// Summarize は確率と予測ラベルから Summary を計算する
func Summarize(labels, proba, predicted *mat.VecDense) (*Summary, error) {
	var s Summary
	var err error
	if s.AreaUnderROC, err = AUC(labels, proba); err != nil {
		return nil, err
	}
	if s.AreaUnderPR, err = AreaUnderPR(labels, proba); err != nil {
		return nil, err
	}
	if s.AvgPrecision, err = AveragePrecision(labels, proba); err != nil {
		return nil, err
	}
	if s.LogLoss, err = BinaryLogLoss(labels, proba); err != nil {
		return nil, err
	}
	if s.Accuracy, err = Accuracy(labels, predicted); err != nil {
		return nil, err
	}
	if s.Confusion, err = NewConfusionMatrix(labels, predicted); err != nil {
		return nil, err
	}
	s.Precision = s.Confusion.Precision()
	s.Recall = s.Confusion.Recall()
	s.F1 = s.Confusion.F1()
	return &s, nil
}
