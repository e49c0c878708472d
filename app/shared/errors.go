package shared

import "fmt"

// ValidationError covers malformed or stage-illegal input: no files submitted,
// an unrecognized display tag, or an action attempted in the wrong stage.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError means the requested action would violate an invariant,
// e.g. creating a round while another one is still in flight.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError means the referenced round, submission or comment does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError means the actor lacks rights for the action: not the owner,
// not an admin, or denied by the player allow-list.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func NewForbiddenError(format string, args ...any) *ForbiddenError {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}
