package fishdata

import (
	"errors"
	"fmt"

	"sanfish/store"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrTransient  = errors.New("temporarily unavailable")
)

// Error is the typed failure returned by every Service operation. Message is
// safe to show to end users; Err holds the underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

func forbidden(action Action) error {
	return &Error{Kind: ErrForbidden, Message: "you do not have permission to " + string(action) + " this fish record"}
}

// fromStore turns a storage failure into a typed error. Errors that already
// carry a kind pass through unchanged.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound(what)
	case errors.Is(err, store.ErrDuplicate):
		return &Error{Kind: ErrConflict, Message: what + " already exists", Err: err}
	case errors.Is(err, store.ErrVersionConflict):
		return &Error{Kind: ErrConflict, Message: what + " was modified concurrently, reload and retry", Err: err}
	case errors.Is(err, store.ErrTransient):
		return &Error{Kind: ErrTransient, Message: "storage temporarily unavailable, retry later", Err: err}
	}
	return &Error{Kind: errInternal, Message: "internal error", Err: err}
}

var errInternal = errors.New("internal error")

// KindOf returns the error's kind sentinel, or nil for untyped errors.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrConflict, ErrTransient} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the user-facing message of a typed error.
func Message(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return "internal error"
}
