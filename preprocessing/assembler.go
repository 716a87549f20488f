// Package preprocessing turns collision frames into numeric feature matrices.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/dataset"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// HandleInvalid の取りうる値
const (
	HandleInvalidError = "error"
	HandleInvalidSkip  = "skip"
	HandleInvalidKeep  = "keep"
)

// DefaultFeatureColumns は特徴ベクトルを構成する列 (緯度, 経度, 負傷者数, 死亡者数)
var DefaultFeatureColumns = []string{
	dataset.ColLatitude,
	dataset.ColLongitude,
	dataset.ColInjured,
	dataset.ColKilled,
}

// VectorAssembler は複数の数値列を1つの特徴行列にまとめる
type VectorAssembler struct {
	// InputCols は特徴量として使う列名 (この順で行列の列になる)
	InputCols []string

	// HandleInvalid は欠損値 (NaN) を含む行の扱い
	//   - "error": エラーを返す (デフォルト)
	//   - "skip":  行を除外し InvalidRowsWarning を発行する
	//   - "keep":  NaN のまま残す
	HandleInvalid string
}

// NewVectorAssembler は新しいVectorAssemblerを作成する
func NewVectorAssembler(cols []string, handleInvalid string) *VectorAssembler {
	if len(cols) == 0 {
		cols = DefaultFeatureColumns
	}
	if handleInvalid == "" {
		handleInvalid = HandleInvalidError
	}
	return &VectorAssembler{
		InputCols:     append([]string(nil), cols...),
		HandleInvalid: handleInvalid,
	}
}

// Transform はフレームから特徴行列を作る
//
// 戻り値:
//   - *mat.Dense: 残った行 × InputCols の行列 (残った行がなければ nil)
//   - []int: 行列の各行が元フレームの何行目か
//   - error: 列が存在しない、または "error" モードで欠損値がある場合
func (v *VectorAssembler) Transform(f *dataset.Frame) (*mat.Dense, []int, error) {
	if len(v.InputCols) == 0 {
		return nil, nil, errors.NewValueError("VectorAssembler", "no input columns")
	}
	mode := v.HandleInvalid
	if mode == "" {
		mode = HandleInvalidError
	}
	if mode != HandleInvalidError && mode != HandleInvalidSkip && mode != HandleInvalidKeep {
		return nil, nil, errors.NewValidationError("HandleInvalid", "must be error, skip or keep", mode)
	}

	cols := make([][]float64, len(v.InputCols))
	for j, name := range v.InputCols {
		vals, err := f.Float(name)
		if err != nil {
			return nil, nil, err
		}
		cols[j] = vals
	}

	n := f.Nrow()
	kept := make([]int, 0, n)
	for i := 0; i < n; i++ {
		valid := true
		for j := range cols {
			if math.IsNaN(cols[j][i]) || math.IsInf(cols[j][i], 0) {
				valid = false
				if mode == HandleInvalidError {
					return nil, nil, errors.NewValueError("VectorAssembler.Transform",
						"invalid value in column "+v.InputCols[j]+"; set HandleInvalid to skip or keep")
				}
				break
			}
		}
		if valid || mode == HandleInvalidKeep {
			kept = append(kept, i)
		}
	}

	if dropped := n - len(kept); dropped > 0 {
		errors.Warn(errors.NewInvalidRowsWarning("assemble", dropped, n, "null or non-finite feature"))
	}
	if len(kept) == 0 {
		return nil, kept, nil
	}

	X := mat.NewDense(len(kept), len(cols), nil)
	for r, i := range kept {
		for j := range cols {
			X.Set(r, j, cols[j][i])
		}
	}
	return X, kept, nil
}
