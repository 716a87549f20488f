package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NotFittedError は学習前のモデルやスケーラーで予測・変換を呼んだ場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("crashsev: %s.%s called before Fit", e.ModelName, e.Method)
}

func (e *NotFittedError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "NotFittedError").Str("model_name", e.ModelName).Str("method", e.Method)
}

// NewNotFittedError は NotFittedError を作成します。
func NewNotFittedError(modelName, method string) error {
	err := errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
	return errors.WithHint(err, "train a model first, or load one with `crashsev score -model model.json`")
}

// DimensionError は行数や特徴量数が合わない場合のエラーです。
// Axis は 0 が行、1 が特徴量です。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("crashsev: %s: expected %d %s, got %d", e.Op, e.Expected, e.axisName(), e.Got)
}

func (e *DimensionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "DimensionError").
		Str("operation", e.Op).
		Str("axis", e.axisName()).
		Int("expected", e.Expected).
		Int("got", e.Got)
}

// NewDimensionError は DimensionError を作成します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
	if axis == 1 {
		err = errors.WithHint(err, "features.columns must match the columns the model was trained on")
	}
	return err
}

// ValidationError は設定値や引数が制約を満たさない場合のエラーです。
// ParamName は設定ファイルのキー名 (例: "model.regParam") を使います。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("crashsev: invalid %s: %s (got %v)", e.ParamName, e.Reason, e.Value)
}

func (e *ValidationError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ValidationError").
		Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value)
}

// NewValidationError は ValidationError を作成します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError はデータの中身が処理できない場合のエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return "crashsev: " + e.Op + ": " + e.Message
}

// NewValueError は ValueError を作成します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ParseError は衝突データのCSVを読めなかった場合のエラーです。
// Line は不明なとき0です。
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("crashsev: read ")
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ParseError").Str("source", e.Source).Int("line", e.Line)
	if e.Err != nil {
		ev.Str("cause", e.Err.Error())
	}
}

// NewParseError は ParseError を作成します。
func NewParseError(source string, line int, err error) error {
	wrapped := errors.WithStack(&ParseError{Source: source, Line: line, Err: err})
	return errors.WithHint(wrapped,
		"files must have the header Index,CRASH DATE,CRASH TIME,BOROUGH,ZIP CODE,LATITUDE,LONGITUDE,"+
			"NUMBER OF PERSONS INJURED,NUMBER OF PERSONS KILLED")
}

// ModelError は学習や推論の内部で起きた失敗を包むエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("crashsev: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("crashsev: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError は ModelError を作成します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError は特徴量・勾配・係数に NaN か Inf が現れた場合のエラーです。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64 // 先頭の最大10件
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	shown := e.Values
	more := ""
	if len(shown) > 5 {
		shown, more = shown[:5], ", ..."
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("crashsev: non-finite values in %s at iteration %d: [%s%s]",
		e.Operation, e.Iteration, strings.Join(parts, ", "), more)
}

// NewNumericalInstabilityError は NumericalInstabilityError を作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Iteration: iteration})
	return errors.WithHint(err, "try a larger model.regParam or standardization")
}
