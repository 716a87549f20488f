package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/rs/zerolog"
)

// 警告は処理を止めずに報告する。pkg/log が zerolog の出力先を登録するまでは
// 標準の log パッケージに書く。
var (
	warnMu      sync.RWMutex
	warnHandler = func(w error) { log.Printf("crashsev-Warning: %v", w) }
	// 循環importを避けるため pkg/log から登録される
	zerologWarn func(w error)
)

// SetWarningHandler は警告ハンドラを差し替えます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {}) // 警告を無視する
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	warnHandler = handler
	warnMu.Unlock()
}

// SetZerologWarnFunc は構造化ログへの出力関数を登録します。nil で解除します。
func SetZerologWarnFunc(fn func(w error)) {
	warnMu.Lock()
	zerologWarn = fn
	warnMu.Unlock()
}

// Warn は警告を報告します。zerolog の出力先があればそちらを優先します。
func Warn(w error) {
	warnMu.RLock()
	fn := zerologWarn
	if fn == nil {
		fn = warnHandler
	}
	warnMu.RUnlock()

	if fn != nil {
		fn(w)
	}
}

// ConvergenceWarning はソルバーが反復上限までに収束しなかったことを示します。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	msg := w.Message
	if msg == "" {
		msg = "increase model.maxIter or model.regParam"
	}
	return fmt.Sprintf("%s did not converge in %d iterations: %s", w.Algorithm, w.Iterations, msg)
}

func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "ConvergenceWarning").
		Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message)
}

// NewConvergenceWarning は ConvergenceWarning を作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// InvalidRowsWarning は欠損値などで行を捨てたことを示します。
type InvalidRowsWarning struct {
	Stage   string
	Dropped int
	Total   int
	Reason  string
}

func (w *InvalidRowsWarning) Error() string {
	return fmt.Sprintf("%s: dropped %d of %d rows (%s)", w.Stage, w.Dropped, w.Total, w.Reason)
}

func (w *InvalidRowsWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "InvalidRowsWarning").
		Str("stage", w.Stage).
		Int("dropped", w.Dropped).
		Int("total", w.Total).
		Str("reason", w.Reason)
}

// NewInvalidRowsWarning は InvalidRowsWarning を作成します。
func NewInvalidRowsWarning(stage string, dropped, total int, reason string) *InvalidRowsWarning {
	return &InvalidRowsWarning{Stage: stage, Dropped: dropped, Total: total, Reason: reason}
}

// UndefinedMetricWarning は評価指標が定義できず代替値を返したことを示します。
// 例: テストデータに重症事故が一件もないときの areaUnderROC。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%s is undefined (%s), returning %g", w.Metric, w.Condition, w.Result)
}

func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "UndefinedMetricWarning").
		Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result)
}

// NewUndefinedMetricWarning は UndefinedMetricWarning を作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}
