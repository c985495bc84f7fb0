// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// cockroachdb/errors の上に構造化されたエラー型を定義し、すべてのエラーにスタックトレースを付与します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("regselect-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ParameterAdjustedWarning はハイパーパラメータがデータに合わせて補正された場合の警告です。
// 例えば、KNeighborsRegressor の n_neighbors が学習サンプル数を超えている場合など。
type ParameterAdjustedWarning struct {
	Model     string
	ParamName string
	From      interface{}
	To        interface{}
	Reason    string
}

func (w *ParameterAdjustedWarning) Error() string {
	return fmt.Sprintf("%s: %s adjusted from %v to %v: %s", w.Model, w.ParamName, w.From, w.To, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ParameterAdjustedWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("model", w.Model).
		Str("param_name", w.ParamName).
		Interface("from", w.From).
		Interface("to", w.To).
		Str("reason", w.Reason).
		Str("type", "ParameterAdjustedWarning")
}

// NewParameterAdjustedWarning は新しいParameterAdjustedWarningを作成します。
func NewParameterAdjustedWarning(model, param string, from, to interface{}, reason string) *ParameterAdjustedWarning {
	return &ParameterAdjustedWarning{Model: model, ParamName: param, From: from, To: to, Reason: reason}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Score` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("regselect: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("regselect: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力データやパラメータの検証に失敗した場合のエラーです。
// 評価器を呼び出す前に検出される不正な入力（空の配列、列数の不一致など）はすべてこの型になります。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("regselect: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("regselect: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は個々の回帰モデルの学習・予測に関するエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("regselect: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("regselect: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// StepError はモデル選択ステップの協調コンポーネント（評価器、ストア、レポート）が
// 失敗した場合に一度だけ付与されるエンベロープです。制御フローは変えず、診断情報のみを追加します。
type StepError struct {
	Op   string
	Kind string
	Err  error
}

// StepError の Kind に使う値
const (
	KindEvaluation  = "evaluation failed"
	KindPersistence = "persistence failed"
	KindReport      = "report failed"
)

func (e *StepError) Error() string {
	return fmt.Sprintf("regselect: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *StepError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("kind", e.Kind).
		Str("cause", fmt.Sprint(e.Err)).
		Str("type", "StepError")
}

// NewStepError は新しいStepErrorを作成し、スタックトレースを付与します。
func NewStepError(op, kind string, err error) error {
	return errors.WithStack(&StepError{Op: op, Kind: kind, Err: err})
}

// NoSuitableModelError はすべての候補モデルのスコアが受け入れ閾値を下回った場合のエラーです。
// 例外的な状況ではなく、想定されたビジネス上の結果を表します。
type NoSuitableModelError struct {
	BestName  string
	BestScore float64
	Threshold float64
}

func (e *NoSuitableModelError) Error() string {
	return fmt.Sprintf("regselect: no best model found: best candidate %q scored %.4f, below threshold %.4f",
		e.BestName, e.BestScore, e.Threshold)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NoSuitableModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("best_name", e.BestName).
		Float64("best_score", e.BestScore).
		Float64("threshold", e.Threshold).
		Str("type", "NoSuitableModelError")
}

// NewNoSuitableModelError は新しいNoSuitableModelErrorを作成し、スタックトレースを付与します。
func NewNoSuitableModelError(bestName string, bestScore, threshold float64) error {
	return errors.WithStack(&NoSuitableModelError{BestName: bestName, BestScore: bestScore, Threshold: threshold})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// StackTrace はcockroachdb/errorsが記録した最初のスタックトレースを文字列で返します。
func StackTrace(err error) string {
	details := errors.GetSafeDetails(err).SafeDetails
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// ===========================================================================
//
//	数値計算の不安定性
//
// ===========================================================================

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "gradient_update", "input_validation"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("regselect: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrEmptyRegistry は候補モデルが一つも登録されていない場合のエラーです。
	ErrEmptyRegistry = New("empty candidate registry")
)
