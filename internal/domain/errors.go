package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPageLoadTimeout = errors.New("page load timed out")
	ErrNavigation      = errors.New("navigation failed")
	ErrParseFailure    = errors.New("html parse failed")
)

// ErrorKind is the typed outcome recorded on a failed JobPosting.
type ErrorKind string

const (
	KindPageLoadTimeout ErrorKind = "PageLoadTimeout"
	KindNavigation      ErrorKind = "NavigationError"
	KindParseFailure    ErrorKind = "ParseFailure"
	KindUnhandled       ErrorKind = "UnhandledError"
)

// KindOf classifies err against the sentinel errors above.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrPageLoadTimeout):
		return KindPageLoadTimeout
	case errors.Is(err, ErrNavigation):
		return KindNavigation
	case errors.Is(err, ErrParseFailure):
		return KindParseFailure
	default:
		return KindUnhandled
	}
}

// Describe formats err as "<Kind>: <message>". Unclassified errors also
// carry the Go type of the innermost error.
func Describe(err error) string {
	kind := KindOf(err)
	if kind != KindUnhandled {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	return fmt.Sprintf("%s: %T: %v", kind, inner, err)
}

// PanicError wraps a value recovered from a panicking pipeline stage.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
