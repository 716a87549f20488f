package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/crashseverity/core/model"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// minScale 未満の標準偏差は定数列とみなす
const minScale = 1e-8

// StandardScaler は特徴量を列ごとに平均0、標準偏差1へ変換する。
// ロジスティック回帰はこれで学習前の特徴量を揃え、係数を元のスケールへ戻す。
type StandardScaler struct {
	*model.StateManager

	// Mean は各列の母平均 (WithMean=false のときは0)
	Mean []float64

	// Scale は各列の母標準偏差 (WithStd=false または定数列のときは1)
	Scale []float64

	WithMean bool
	WithStd  bool
}

var _ model.InverseTransformer = (*StandardScaler)(nil)

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		StateManager: model.NewStateManager("StandardScaler"),
		WithMean:     withMean,
		WithStd:      withStd,
	}
}

// NewStandardScalerDefault は平均除去とスケーリングの両方を行う
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は列ごとの統計量を gonum/stat で計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	mean := make([]float64, c)
	scale := make([]float64, c)
	col := make([]float64, r)
	for j := range c {
		mat.Col(col, j, X)
		if err := errors.CheckNumericalStability("StandardScaler.Fit", col, 0); err != nil {
			return err
		}

		m, std := stat.PopMeanStdDev(col, nil)
		if s.WithMean {
			mean[j] = m
		}
		scale[j] = 1
		if s.WithStd {
			if !s.WithMean {
				// 中心化しない場合は原点まわりの二乗平均平方根
				std = math.Hypot(m, std)
			}
			if std >= minScale {
				scale[j] = std
			}
		}
	}

	s.Mean, s.Scale = mean, scale
	s.SetFitted(c, r)
	return nil
}

// Transform は (x - Mean) / Scale を適用する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.check("Transform", X); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return &out, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.check("InverseTransform", X); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return &out, nil
}

func (s *StandardScaler) check(method string, X mat.Matrix) error {
	if err := s.RequireFitted(method); err != nil {
		return err
	}
	_, c := X.Dims()
	return s.RequireFeatures("StandardScaler."+method, c)
}
