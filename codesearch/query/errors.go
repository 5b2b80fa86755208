package query

import (
	"errors"
	"fmt"
)

// ErrorKind classifies query errors. Every kind is a client-input error.
type ErrorKind string

const (
	ErrLex                   ErrorKind = "lex"
	ErrSyntax                ErrorKind = "syntax"
	ErrUnknownQualifier      ErrorKind = "unknown_qualifier"
	ErrInvalidQualifierValue ErrorKind = "invalid_qualifier_value"
)

// Error is returned by Tokenize, Parse and ParseQualifier.
type Error struct {
	Kind    ErrorKind
	Message string
	// Token is the offending token value, if any.
	Token string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Token != "" {
		return fmt.Sprintf("%s: %s (token=%q)", e.Kind, e.Message, e.Token)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, msg, token string) *Error {
	return &Error{Kind: kind, Message: msg, Token: token}
}

// KindOf returns the kind of a query error and false if err is not one.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
