package game

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected action.
type Kind string

const (
	// KindState means the action is not allowed in the current game state or round phase.
	KindState Kind = "state"
	// KindOperation means the action breaks a rule regardless of phase.
	KindOperation Kind = "operation"
	// KindNotFound means a game, player or card id is unknown.
	KindNotFound Kind = "not_found"
)

// Error is returned by every rejected engine operation. Nothing is mutated when one is returned.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error of the same kind, so errors.Is(err, ErrState) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrState     = &Error{Kind: KindState, Message: "invalid state for action"}
	ErrOperation = &Error{Kind: KindOperation, Message: "operation not allowed"}
	ErrNotFound  = &Error{Kind: KindNotFound, Message: "not found"}
)

func stateErr(format string, args ...any) error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

func opErr(format string, args ...any) error {
	return &Error{Kind: KindOperation, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an engine error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NewError builds an engine error of the given kind, for collaborators such as stores.
func NewError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
