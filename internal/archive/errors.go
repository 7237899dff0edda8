package archive

import (
	"errors"
	"fmt"
)

// Kind classifies extraction failures so callers can react without
// string matching.
type Kind string

const (
	InvalidEncoding   Kind = "invalid-encoding"
	FormatMismatch    Kind = "format-mismatch"
	EmptyArchive      Kind = "empty-archive"
	CorruptArchive    Kind = "corrupt-archive"
	PasswordRequired  Kind = "password-required"
	PasswordIncorrect Kind = "password-incorrect"
	PathTraversal     Kind = "path-traversal"
	SizeLimitExceeded Kind = "size-limit-exceeded"
	UnsupportedFormat Kind = "unsupported-format"
)

// Error is the typed failure surfaced by every stage of the pipeline.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and context to an underlying error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind carried by err, or "" for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
