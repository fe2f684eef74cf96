package broadcaster

import (
	"errors"
	"fmt"
)

// Errors returned by the broadcaster. Use errors.Is to check them.
var (
	ErrClosed      = errors.New("broadcaster is closed")
	ErrNilCallback = errors.New("callback must not be nil")
	ErrEmptyID     = errors.New("broadcaster id must not be empty")
	ErrInvalidURL  = errors.New("invalid broker url")
)

// CallbackPanicError is logged when a subscriber callback panics.
type CallbackPanicError struct {
	Value any
	Stack []byte
}

func (e *CallbackPanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}
