// Package fault defines the pipeline error taxonomy. Data-quality problems are
// filtered and counted by the stages themselves; the kinds below are fatal and
// travel up the call stack wrapped in eris.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal pipeline error.
type Kind string

const (
	// KindInvalidInput marks a precondition violation that crossed a stage boundary.
	KindInvalidInput Kind = "invalid_input"
	// KindInsufficientData marks a dataset too small for an algorithm's parameters.
	KindInsufficientData Kind = "insufficient_data"
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput returns a KindInvalidInput error with a formatted message.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Err: fmt.Errorf(format, args...)}
}

// InsufficientData returns a KindInsufficientData error with a formatted message.
func InsufficientData(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientData, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsInvalidInput reports whether err (or any error in its chain) is an InvalidInput error.
func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidInput
}

// IsInsufficientData reports whether err (or any error in its chain) is an InsufficientData error.
func IsInsufficientData(err error) bool {
	return KindOf(err) == KindInsufficientData
}
