// Package errors provides the error kinds raised while projecting equipment
// JSON into a shape-conformant graph, and their classification for callers
// that decide between retrying and dropping an input.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies what went wrong during a transform.
type Kind int

const (
	// KindMissingField is a required JSON field that is absent or empty.
	KindMissingField Kind = iota + 1
	// KindUnmappedIdentifier is a class or property identifier with no
	// entry in its mapping table.
	KindUnmappedIdentifier
	// KindLoad is a mapping table that could not be read or parsed.
	KindLoad
	// KindRetrieval is a shape document fetch that failed.
	KindRetrieval
	// KindParse is malformed JSON or a malformed triples document.
	KindParse
	// KindMalformedShape is a shape document without a BlockType subject.
	KindMalformedShape
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing field"
	case KindUnmappedIdentifier:
		return "unmapped identifier"
	case KindLoad:
		return "load"
	case KindRetrieval:
		return "retrieval"
	case KindParse:
		return "parse"
	case KindMalformedShape:
		return "malformed shape"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a Kind.
var (
	ErrMissingField       = &Error{Kind: KindMissingField}
	ErrUnmappedIdentifier = &Error{Kind: KindUnmappedIdentifier}
	ErrLoad               = &Error{Kind: KindLoad}
	ErrRetrieval          = &Error{Kind: KindRetrieval}
	ErrParse              = &Error{Kind: KindParse}
	ErrMalformedShape     = &Error{Kind: KindMalformedShape}
)

// Error is a transform failure tagged with its Kind.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "mapping.Load".
	Op  string
	Msg string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. This lets the
// package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with a kind. It returns nil when err is nil.
func Wrap(kind Kind, err error, op, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// MissingField reports a required JSON field that is absent or empty.
func MissingField(op, field string) *Error {
	return New(KindMissingField, op, "required field %q is missing or empty", field)
}

// Unmapped reports an identifier without an entry in the named table.
func Unmapped(op, table, id string) *Error {
	return New(KindUnmappedIdentifier, op, "no %s mapping found for %q", table, id)
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsTransient reports whether err may succeed when retried: shape retrieval
// failures and context deadline errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if KindOf(err) == KindRetrieval {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsInvalid reports whether err was caused by the input or the reference
// data it points at, so retrying the same input cannot succeed.
func IsInvalid(err error) bool {
	switch KindOf(err) {
	case KindMissingField, KindUnmappedIdentifier, KindParse, KindMalformedShape:
		return true
	default:
		return false
	}
}
