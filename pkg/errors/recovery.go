package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError wraps a value recovered from a panic inside Fit, Predict or a
// worker goroutine, so that one misbehaving candidate surfaces as an error
// instead of taking the whole selection run down.
type PanicError struct {
	Operation  string
	PanicValue interface{}
	StackTrace string // debug.Stack() at the recovery point
}

// NewPanicError captures the current goroutine's stack along with the value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
	}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap exposes the panic value when it was itself an error
// (e.g. a runtime.Error from an out-of-range index).
func (e *PanicError) Unwrap() error {
	err, _ := e.PanicValue.(error)
	return err
}

// String includes the captured stack; use it for debug logs only.
func (e *PanicError) String() string {
	return e.Error() + "\nStack trace:\n" + e.StackTrace
}

// Recover は named return の err と組み合わせて defer で使う。
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "Model.Fit")
//	    ...
//	}
//
// panic 前に err が既に設定されていれば、そのエラーを原因として残したまま包む。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err == nil {
		*err = NewPanicError(operation, r)
		return
	}
	*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
}

// SafeExecute runs fn and converts a panic into a *PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
