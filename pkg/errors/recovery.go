package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError はパイプラインの段階内で回復した panic を表します。
type PanicError struct {
	// Operation は回復した段階や関数の名前
	Operation string
	// PanicValue は panic() に渡された値
	PanicValue interface{}
	// StackTrace は panic 時点のゴルーチンのスタック
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap は panic の値が error ならそれを返す。
func (e *PanicError) Unwrap() error {
	err, _ := e.PanicValue.(error)
	return err
}

// NewPanicError は現在のスタックを記録した PanicError を作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
	}
}

// Recover は panic をエラーに変換して *err に代入します。直接 defer すること:
//
//	func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
//	    defer errors.Recover(&err, "pipeline.Run")
//	    ...
//	}
//
// *err が既に設定されていれば、元のエラーを連鎖に残したまま panic 情報を前置する。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute は fn を実行し、panic を *PanicError として返す。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
