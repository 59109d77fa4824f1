package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrProviderFailure  = errors.New("provider failure")
	ErrUnexpectedOutput = errors.New("unexpected provider output")
	ErrAlreadyFinal     = errors.New("row already in a terminal state")
)

// InputError is a client error whose message is safe to return verbatim.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// NewInputError constructs an InputError.
func NewInputError(msg string) error {
	return &InputError{Msg: msg}
}
