// Package errors はcrashseverity全体で使う構造化エラーと警告を提供します。
//
// 読み込み・ラベル付け・オーバーサンプリング・学習・評価の各段階の失敗は
// このパッケージの型で表現され、cockroachdb/errors によるスタックトレースと
// 利用者向けのヒントが付与されます。ヒントは Error() の文字列には含まれず、
// pkg/log のハンドラが "hint" 属性として出力します。
package errors

import (
	"github.com/cockroachdb/errors"
)

// 段階をまたいで判定に使う番兵エラー
var (
	// ErrEmptyData はゼロ行のデータが渡された場合のエラーです。
	ErrEmptyData = errors.New("empty data")

	// ErrSingleClass はラベルが一つのクラスしか含まない場合のエラーです。
	// 学習もAUCも両クラスを必要とします。
	ErrSingleClass = errors.New("labels contain a single class")

	// ErrNoMinorityRows は少数クラスの行が一件もなく合成できない場合のエラーです。
	ErrNoMinorityRows = errors.New("no rows of the minority class to oversample")
)

// Is は errors.Is のラッパーです。
func Is(err, target error) bool { return errors.Is(err, target) }

// As は errors.As のラッパーです。
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Wrap はスタックトレース付きでメッセージを前置します。
func Wrap(err error, message string) error { return errors.Wrap(err, message) }

// Wrapf は Wrap のフォーマット版です。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New はスタックトレース付きのエラーを作成します。
func New(message string) error { return errors.New(message) }

// Newf は New のフォーマット版です。
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }

// WithHint は利用者向けの対処方法を付与します。
func WithHint(err error, hint string) error { return errors.WithHint(err, hint) }

// Hints はエラー連鎖に付与されたヒントを改行区切りで返します。
func Hints(err error) string { return errors.FlattenHints(err) }
