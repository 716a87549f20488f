// Package metrics は二値分類モデルの評価指標を提供する
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// validatePair は2つのベクトルが非nil・非空・同じ長さであることを確認する
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// validateBinary はラベルが0か1のみであることを確認し、正例数を返す
func validateBinary(op string, yTrue *mat.VecDense) (int, error) {
	pos := 0
	for i := 0; i < yTrue.Len(); i++ {
		switch yTrue.AtVec(i) {
		case 1:
			pos++
		case 0:
		default:
			return 0, errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return pos, nil
}

// rankedIndex はスコアの降順に並べたインデックスを返す（同順位は元の順序を保つ）
func rankedIndex(scores *mat.VecDense) []int {
	idx := make([]int, scores.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores.AtVec(idx[a]) > scores.AtVec(idx[b])
	})
	return idx
}

// AUC はROC曲線下面積を計算する
//
// 同順位のスコアは平均順位で扱う（Mann-Whitney U 統計量）。
// ラベルが片方のクラスしか含まない場合は UndefinedMetricWarning を発行して 0.5 を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	pos, err := validateBinary("AUC", yTrue)
	if err != nil {
		return 0, err
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("areaUnderROC", "only one class present in labels", 0.5))
		return 0.5, nil
	}
	if err := errors.CheckNumericalStability("AUC", yPred.RawVector().Data, 0); err != nil {
		return 0, err
	}

	// 昇順に並べて平均順位を付与
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b]) })

	var rankSumPos float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && yPred.AtVec(idx[j+1]) == yPred.AtVec(idx[i]) {
			j++
		}
		avgRank := float64(i+j)/2.0 + 1.0
		for k := i; k <= j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += avgRank
			}
		}
		i = j + 1
	}

	u := rankSumPos - float64(pos)*float64(pos+1)/2.0
	return u / (float64(pos) * float64(neg)), nil
}

// ROCCurve はROC曲線の点（偽陽性率, 真陽性率, 閾値）を返す
//
// 曲線は (0, 0) から始まり (1, 1) で終わる。最初の閾値は +Inf。
// 同じスコアは1点にまとめる。
func ROCCurve(yTrue, yScore *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	n, err := validatePair("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, nil, nil, err
	}
	pos, err := validateBinary("ROCCurve", yTrue)
	if err != nil {
		return nil, nil, nil, err
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		return nil, nil, nil, errors.Wrap(errors.ErrSingleClass, "ROC curve needs both classes")
	}

	idx := rankedIndex(yScore)
	fpr = []float64{0}
	tpr = []float64{0}
	thresholds = []float64{math.Inf(1)}

	var tp, fp int
	for i := 0; i < n; i++ {
		if yTrue.AtVec(idx[i]) == 1 {
			tp++
		} else {
			fp++
		}
		if i+1 < n && yScore.AtVec(idx[i+1]) == yScore.AtVec(idx[i]) {
			continue
		}
		fpr = append(fpr, float64(fp)/float64(neg))
		tpr = append(tpr, float64(tp)/float64(pos))
		thresholds = append(thresholds, yScore.AtVec(idx[i]))
	}
	return fpr, tpr, thresholds, nil
}

// AveragePrecision は平均適合率を計算する
//
// スコア降順に並べ、各正例の位置での適合率を平均する。正例がない場合は 0 を返す。
func AveragePrecision(yTrue, yScore *mat.VecDense) (float64, error) {
	_, err := validatePair("AveragePrecision", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	pos, err := validateBinary("AveragePrecision", yTrue)
	if err != nil {
		return 0, err
	}
	if pos == 0 {
		return 0, nil
	}

	var hits int
	var sum float64
	for rank, i := range rankedIndex(yScore) {
		if yTrue.AtVec(i) == 1 {
			hits++
			sum += float64(hits) / float64(rank+1)
		}
	}
	return sum / float64(pos), nil
}

// AreaUnderPR は適合率-再現率曲線の下面積を台形則で計算する
//
// 曲線は (再現率 0, 最初の閾値での適合率) から始まる。
func AreaUnderPR(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := validatePair("AreaUnderPR", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	pos, err := validateBinary("AreaUnderPR", yTrue)
	if err != nil {
		return 0, err
	}
	if pos == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("areaUnderPR", "no positive labels", 0))
		return 0, nil
	}

	idx := rankedIndex(yScore)
	var tp, fp int
	var area, prevRecall, prevPrecision float64
	first := true
	for i := 0; i < n; i++ {
		if yTrue.AtVec(idx[i]) == 1 {
			tp++
		} else {
			fp++
		}
		if i+1 < n && yScore.AtVec(idx[i+1]) == yScore.AtVec(idx[i]) {
			continue
		}
		recall := float64(tp) / float64(pos)
		precision := float64(tp) / float64(tp+fp)
		if first {
			prevPrecision = precision
			first = false
		}
		area += (recall - prevRecall) * (precision + prevPrecision) / 2
		prevRecall, prevPrecision = recall, precision
	}
	return area, nil
}

// BinaryLogLoss は二値交差エントロピーを計算する（確率は [ε, 1-ε] にクリップ）
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if _, err := validateBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	const eps = 1e-15
	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), eps, 1-eps)
		if yTrue.AtVec(i) == 1 {
			sum -= errors.StabilizeLog(p)
		} else {
			sum -= errors.StabilizeLog(1 - p)
		}
	}
	return sum / float64(n), nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionMatrix は二値分類の混同行列
type ConfusionMatrix struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// NewConfusionMatrix は0/1ラベルと0/1予測から混同行列を作る
func NewConfusionMatrix(yTrue, yPred *mat.VecDense) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	n, err := validatePair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return cm, err
	}
	if _, err := validateBinary("ConfusionMatrix", yTrue); err != nil {
		return cm, err
	}
	if _, err := validateBinary("ConfusionMatrix", yPred); err != nil {
		return cm, err
	}
	for i := 0; i < n; i++ {
		switch {
		case yTrue.AtVec(i) == 1 && yPred.AtVec(i) == 1:
			cm.TP++
		case yTrue.AtVec(i) == 1:
			cm.FN++
		case yPred.AtVec(i) == 1:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Precision は TP / (TP + FP)。予測陽性がなければ 0。
func (c ConfusionMatrix) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall は TP / (TP + FN)。実陽性がなければ 0。
func (c ConfusionMatrix) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 は適合率と再現率の調和平均
func (c ConfusionMatrix) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
