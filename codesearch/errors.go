package codesearch

import (
	"errors"
	"fmt"

	"github.com/codesearch/codesearch/codesearch/query"
)

type ErrorKind string

const (
	ErrLex                   ErrorKind = "lex"
	ErrSyntax                ErrorKind = "syntax"
	ErrUnknownQualifier      ErrorKind = "unknown_qualifier"
	ErrInvalidQualifierValue ErrorKind = "invalid_qualifier_value"
	ErrSQL                   ErrorKind = "sql"
	ErrIO                    ErrorKind = "io"
	ErrSchema                ErrorKind = "schema"
	ErrHighlight             ErrorKind = "highlight"
	ErrNotFound              ErrorKind = "not_found"
	ErrInvalidArgument       ErrorKind = "invalid_argument"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func InvalidArgument(field, msg string) *Error {
	return &Error{Kind: ErrInvalidArgument, Field: field, Message: msg}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsClientError reports whether err was caused by the query text rather
// than by the server.
func IsClientError(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case ErrLex, ErrSyntax, ErrUnknownQualifier, ErrInvalidQualifierValue:
		return true
	}
	return false
}

var queryKinds = map[query.ErrorKind]ErrorKind{
	query.ErrLex:                   ErrLex,
	query.ErrSyntax:                ErrSyntax,
	query.ErrUnknownQualifier:      ErrUnknownQualifier,
	query.ErrInvalidQualifierValue: ErrInvalidQualifierValue,
}

// wrapQuery keeps the query package's kind when err carries one and falls
// back to fallback otherwise.
func wrapQuery(fallback ErrorKind, msg string, err error) *Error {
	if qk, ok := query.KindOf(err); ok {
		return Wrap(queryKinds[qk], msg, err)
	}
	return Wrap(fallback, msg, err)
}
