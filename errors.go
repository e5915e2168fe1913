package idguard

import (
	"errors"

	"github.com/hengadev/idguard/internal/fielderr"
	"github.com/hengadev/idguard/internal/protect"
)

var (
	// Configuration errors
	ErrInvalidConfiguration     = errors.New("invalid configuration")
	ErrRootSecretMissing        = errors.New("root secret is missing")
	ErrModeUnavailable          = errors.New("protection mode unavailable")
	ErrSecretStorageUnavailable = errors.New("secret storage unavailable")

	// Lookup errors
	ErrNotFound = errors.New("record not found")

	// Crypto errors
	ErrEncryptionFailed  = protect.ErrEncryptionFailed
	ErrDecryptionFailed  = protect.ErrDecryptionFailed
	ErrCryptoUnavailable = protect.ErrCryptoUnavailable

	// Field errors
	ErrFieldOperationFailed = fielderr.ErrOperationFailed
	ErrInvalidFormat        = fielderr.ErrInvalidFormat
)

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigurationError returns true if the error represents a configuration problem.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrRootSecretMissing) ||
		errors.Is(err, ErrModeUnavailable)
}

// IsRetryableError returns true if the error represents a transient failure that might succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrSecretStorageUnavailable)
}

// IsOperationError returns true if the error represents a failure during hashing, encryption or decryption.
func IsOperationError(err error) bool {
	return errors.Is(err, ErrEncryptionFailed) ||
		errors.Is(err, ErrDecryptionFailed) ||
		errors.Is(err, ErrFieldOperationFailed)
}

// IsValidationError returns true if the error represents a data validation problem.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}
