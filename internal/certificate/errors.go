package certificate

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("invalid certificate fields")
	ErrInvalidIdentifier = errors.New("invalid certificate identifier")
)

// ValidationError lists every rule the fields violated.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
