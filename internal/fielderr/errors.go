// Package fielderr builds field-scoped errors for protect and reveal passes.
package fielderr

import (
	"errors"
	"fmt"
)

var (
	ErrOperationFailed = errors.New("operation failed")
	ErrInvalidFormat   = errors.New("invalid format")
)

// NewOperationFailedError wraps cause with the field and action it failed on.
// The field value itself is never included.
func NewOperationFailedError(fieldName string, action Action, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s operation failed for field '%s': %w",
			ErrOperationFailed, action, fieldName, cause)
	}
	return fmt.Errorf("%w: %s operation failed for field '%s'",
		ErrOperationFailed, action, fieldName)
}

func NewInvalidFormatError(fieldName string, formatName string, action Action) error {
	return fmt.Errorf("%w: field '%s' has invalid format for %s operation, expected %s format",
		ErrInvalidFormat, fieldName, action, formatName)
}
