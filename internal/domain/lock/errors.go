package lock

import (
	"errors"
	"strings"
)

// Kind classifies failures raised by the coordinator itself. Errors returned
// by the caller's work are never wrapped in an *Error.
type Kind int

const (
	KindAcquire Kind = iota + 1
	KindRetriesExceeded
	KindInterrupted
	KindRelease
)

var (
	ErrAcquire         = errors.New("advisory lock acquisition failed")
	ErrRetriesExceeded = errors.New("advisory lock retries exceeded")
	ErrInterrupted     = errors.New("interrupted while acquiring advisory lock")
	ErrRelease         = errors.New("advisory lock release failed")
)

func (k Kind) String() string {
	switch k {
	case KindAcquire:
		return "acquire"
	case KindRetriesExceeded:
		return "retries_exceeded"
	case KindInterrupted:
		return "interrupted"
	case KindRelease:
		return "release"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAcquire:
		return ErrAcquire
	case KindRetriesExceeded:
		return ErrRetriesExceeded
	case KindInterrupted:
		return ErrInterrupted
	case KindRelease:
		return ErrRelease
	default:
		return nil
	}
}

// Error is a coordinator failure. errors.Is matches it against the sentinel
// of its Kind as well as against the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

// SuppressedError reports a primary failure together with failures that
// happened later during cleanup. The primary error decides the outcome; the
// suppressed ones stay reachable through errors.Is and errors.As.
type SuppressedError struct {
	Primary    error
	Suppressed []error
}

func (e *SuppressedError) Error() string {
	var b strings.Builder
	b.WriteString(e.Primary.Error())
	for _, s := range e.Suppressed {
		b.WriteString(" (suppressed: ")
		b.WriteString(s.Error())
		b.WriteString(")")
	}
	return b.String()
}

func (e *SuppressedError) Unwrap() []error {
	return append([]error{e.Primary}, e.Suppressed...)
}
