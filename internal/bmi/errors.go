package bmi

import (
	"errors"
	"fmt"
)

// Kind classifies a model error. Callers switch on the kind rather than on
// individual sentinels when they only care about the class of failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindLookupMiss
	KindSizeMismatch
	KindIndexOutOfRange
	KindUseAfterFinalize
	KindNotInitialized
	KindInvalidArgument
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindLookupMiss:
		return "lookup miss"
	case KindSizeMismatch:
		return "size mismatch"
	case KindIndexOutOfRange:
		return "index out of range"
	case KindUseAfterFinalize:
		return "use after finalize"
	case KindNotInitialized:
		return "not initialized"
	case KindInvalidArgument:
		return "invalid argument"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

type sentinel struct {
	kind Kind
	msg  string
}

func (s *sentinel) Error() string { return s.msg }

// Domain errors for model operations.
var (
	// ErrUnknownConfigKey indicates a configuration key the model does not recognize.
	ErrUnknownConfigKey error = &sentinel{KindConfig, "bmi: unknown configuration key"}

	// ErrMalformedValue indicates a configuration value of the wrong type, length or range.
	ErrMalformedValue error = &sentinel{KindConfig, "bmi: malformed configuration value"}

	// ErrUnknownVariable indicates a variable name missing from the registry.
	ErrUnknownVariable error = &sentinel{KindLookupMiss, "bmi: unknown variable"}

	// ErrUnknownGrid indicates a grid id missing from the registry.
	ErrUnknownGrid error = &sentinel{KindLookupMiss, "bmi: unknown grid"}

	// ErrSizeMismatch indicates a buffer whose length disagrees with the grid.
	ErrSizeMismatch error = &sentinel{KindSizeMismatch, "bmi: buffer size mismatch"}

	// ErrIndexOutOfRange indicates a flat index outside the grid.
	ErrIndexOutOfRange error = &sentinel{KindIndexOutOfRange, "bmi: index out of range"}

	// ErrUseAfterFinalize indicates a call on a model that was already finalized.
	ErrUseAfterFinalize error = &sentinel{KindUseAfterFinalize, "bmi: model used after finalize"}

	// ErrNotInitialized indicates a call on a model that was never initialized.
	ErrNotInitialized error = &sentinel{KindNotInitialized, "bmi: model not initialized"}

	// ErrInvalidArgument indicates an argument outside the operation's domain.
	ErrInvalidArgument error = &sentinel{KindInvalidArgument, "bmi: invalid argument"}

	// ErrUnsupported indicates an accessor that does not apply to the grid kind.
	ErrUnsupported error = &sentinel{KindUnsupported, "bmi: operation not supported for grid kind"}
)

// KindOf reports the kind of the first model sentinel found in err's chain.
func KindOf(err error) Kind {
	var s *sentinel
	if errors.As(err, &s) {
		return s.kind
	}
	return KindUnknown
}

// IsLookupMiss reports whether err is an unknown variable or unknown grid error.
func IsLookupMiss(err error) bool {
	return KindOf(err) == KindLookupMiss
}

// Error wraps a model error with the operation and the name or id involved.
type Error struct {
	Op      string
	Name    string
	Detail  string
	Wrapped error
}

func (e *Error) Error() string {
	msg := e.Wrapped.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" (%s)", e.Name)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Errorf builds an *Error for op and name wrapping kind, with a formatted detail.
func Errorf(op, name string, kind error, format string, args ...any) error {
	return &Error{Op: op, Name: name, Detail: fmt.Sprintf(format, args...), Wrapped: kind}
}

// Wrap builds an *Error for op and name wrapping kind.
func Wrap(op, name string, kind error) error {
	return &Error{Op: op, Name: name, Wrapped: kind}
}
