package query

import (
	"errors"
	"fmt"
)

// Kind classifies failures so transports can map them without string matching.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindInvalidCursor
	KindNotFound
	KindUpstream
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "invalid_request"
	case KindInvalidCursor:
		return "invalid_cursor"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_not_ready"
	case KindStore:
		return "store_error"
	default:
		return "internal_error"
	}
}

// Error is the typed error returned across the query layers.
type Error struct {
	Kind Kind
	// Op names the store operation for KindStore errors.
	Op  string
	Msg string
	Err error
}

// Sentinels for errors.Is checks. They match any *Error of the same Kind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrInvalidCursor = &Error{Kind: KindInvalidCursor}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrStore         = &Error{Kind: KindStore}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Op == "" && t.Err == nil
}

// Invalid builds a validation error.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// InvalidCursor builds a cursor rejection.
func InvalidCursor(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidCursor, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing detail record.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a failure of an upstream dependency that may recover on its own.
func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// StoreFailure wraps a store error with the operation that produced it.
func StoreFailure(op string, err error) *Error {
	return &Error{Kind: KindStore, Op: op, Msg: "query failed", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return 0
}
