package errors

import "math"

// maxReported は NumericalInstabilityError に残す値の上限
const maxReported = 10

// logEpsilon は log(0) を避けるための下限
const logEpsilon = 1e-15

// CheckNumericalStability は values に NaN か Inf があればエラーを返す。
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	var bad []float64
	for _, v := range values {
		if !isFinite(v) {
			bad = append(bad, v)
			if len(bad) == maxReported {
				break
			}
		}
	}
	if bad == nil {
		return nil
	}
	return NewNumericalInstabilityError(operation, bad, iteration)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClipValue は value を [lo, hi] に収める。
func ClipValue(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// StabilizeLog は log(max(value, 1e-15))。
func StabilizeLog(value float64) float64 {
	return math.Log(math.Max(value, logEpsilon))
}

// Log1pExp は log(1 + e^z)。z が大きくてもオーバーフローしない。
func Log1pExp(z float64) float64 {
	if z <= 0 {
		return math.Log1p(math.Exp(z))
	}
	return z + math.Log1p(math.Exp(-z))
}

// Sigmoid は 1 / (1 + e^-z)。
func Sigmoid(z float64) float64 {
	if z < 0 {
		ez := math.Exp(z)
		return ez / (1 + ez)
	}
	return 1 / (1 + math.Exp(-z))
}
