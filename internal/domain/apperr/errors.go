package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how far it is allowed to propagate.
type Kind string

const (
	KindTransport        Kind = "transport"
	KindSchema           Kind = "schema"
	KindData             Kind = "data"
	KindInsufficientData Kind = "insufficient_data"
	KindPersistence      Kind = "persistence"
	KindUnknown          Kind = "unknown"
)

// Sentinels for errors.Is matching. Only the Kind is compared.
var (
	ErrTransport        = &Error{Kind: KindTransport}
	ErrSchema           = &Error{Kind: KindSchema}
	ErrData             = &Error{Kind: KindData}
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	ErrPersistence      = &Error{Kind: KindPersistence}
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Transport wraps a network or upstream availability failure.
func Transport(op string, err error) error { return &Error{Kind: KindTransport, Op: op, Err: err} }

// Schema wraps an unexpected payload or column shape.
func Schema(op string, err error) error { return &Error{Kind: KindSchema, Op: op, Err: err} }

// Schemaf builds a schema error from a format string.
func Schemaf(op, format string, args ...any) error { return newf(KindSchema, op, format, args...) }

// Data wraps malformed numeric input.
func Data(op string, err error) error { return &Error{Kind: KindData, Op: op, Err: err} }

// Dataf builds a data error from a format string.
func Dataf(op, format string, args ...any) error { return newf(KindData, op, format, args...) }

// InsufficientDataf builds an error for an unmet statistical precondition.
func InsufficientDataf(op, format string, args ...any) error {
	return newf(KindInsufficientData, op, format, args...)
}

// Persistence wraps a write failure to a store.
func Persistence(op string, err error) error { return &Error{Kind: KindPersistence, Op: op, Err: err} }

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
