package types

import (
	"errors"
	"strings"
)

// Catalog operation errors. Storage and encoding faults are wrapped with
// ErrStorage and ErrEncoding so callers can classify them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
	ErrEncoding   = errors.New("qr encoding failure")
	ErrNotFound   = errors.New("book not found")
	ErrInvalidID  = errors.New("invalid book ID")
)

// ValidationError lists the add-book fields that failed validation.
// Fields holds the json names of the offending fields in declaration order.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Fields, ", ")
}

// Is reports ErrValidation as the sentinel for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
