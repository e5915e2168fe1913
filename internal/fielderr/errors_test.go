package fielderr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOperationFailedError(t *testing.T) {
	cause := errors.New("boom")

	err := NewOperationFailedError("address", Encrypt, cause)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "operation failed: encrypt operation failed for field 'address': boom", err.Error())

	err = NewOperationFailedError("omang", Hash, nil)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.Equal(t, "operation failed: hash operation failed for field 'omang'", err.Error())
}

func TestNewInvalidFormatError(t *testing.T) {
	err := NewInvalidFormatError("omang", "digits or digest", Hash)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "expected digits or digest format")
}

func TestAction_String(t *testing.T) {
	tests := map[Action]string{
		Unknown:    "unknown",
		Hash:       "hash",
		Encrypt:    "encrypt",
		Decrypt:    "decrypt",
		Mask:       "mask",
		Action(42): "unknown",
	}
	for action, want := range tests {
		assert.Equal(t, want, action.String())
	}
}
