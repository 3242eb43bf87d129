package game

import (
	"errors"
	"fmt"
)

// ValidationError marks an illegal-but-expected player action: wrong turn,
// insufficient mana, bad target, and so on. Command handlers convert it to
// a non-fatal rejection; any other error from the engine is an invariant
// violation and treated as a bug.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Invalidf builds a ValidationError from a format string.
func Invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
