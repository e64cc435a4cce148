package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures independently of the engine that raised them.
type ErrorKind int

const (
	// KindExecution is any runtime failure not covered by a more specific kind.
	KindExecution ErrorKind = iota
	// KindConnectivity means neither engine could be reached or opened.
	KindConnectivity
	// KindTranslation marks a translated statement the engine rejected.
	KindTranslation
	// KindAlreadyExists is an object-exists conflict during DDL.
	KindAlreadyExists
	// KindConstraint is a unique, foreign key, not-null or check violation.
	KindConstraint
	// KindSyntax is a statement the engine could not parse.
	KindSyntax
	// KindTypeMismatch is a value the engine could not coerce to the column type.
	KindTypeMismatch
	// KindConnectionLost is a connection dropped while a statement was running.
	KindConnectionLost
)

var kindNames = map[ErrorKind]string{
	KindExecution:      "execution",
	KindConnectivity:   "connectivity",
	KindTranslation:    "translation",
	KindAlreadyExists:  "already_exists",
	KindConstraint:     "constraint",
	KindSyntax:         "syntax",
	KindTypeMismatch:   "type_mismatch",
	KindConnectionLost: "connection_lost",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the failure half of an execution outcome.
type Error struct {
	Kind    ErrorKind
	Op      string // e.g. "execute", "connect", "begin"
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind and operation name. The message defaults to err's text.
func NewError(kind ErrorKind, op string, err error) *Error {
	e := &Error{Kind: kind, Op: op, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// Errorf builds an Error without an underlying cause.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindExecution.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExecution
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
