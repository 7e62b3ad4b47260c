package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatPayload struct {
	Message   string `json:"message" validate:"notblank,max=20"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		err := ValidateStruct(&chatPayload{Message: "What is flu?"})
		assert.NoError(t, err)
	})

	t.Run("blank message", func(t *testing.T) {
		err := ValidateStruct(&chatPayload{Message: "   "})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "message is required", fields["message"])
	})

	t.Run("message too long", func(t *testing.T) {
		err := ValidateStruct(&chatPayload{Message: strings.Repeat("a", 21)})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "message must be at most 20", fields["message"])
	})

	t.Run("invalid session id", func(t *testing.T) {
		err := ValidateStruct(&chatPayload{Message: "hi", SessionID: "nope"})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "session_id")
	})
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID("123e4567-e89b-12d3-a456-426614174000"))
	assert.Error(t, ValidateUUID("not-a-uuid"))
	assert.Error(t, ValidateUUID(""))
}

func TestValidateStringLength(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		min       int
		max       int
		wantError bool
	}{
		{"within range", "test", 1, 10, false},
		{"too short", "a", 3, 10, true},
		{"too long", "this is a very long string", 1, 10, true},
		{"no min constraint", "", 0, 10, false},
		{"no max constraint", "very long string here that exceeds normal limits", 1, 0, false},
		{"multibyte counted as runes", "fiebre alta ñ", 1, 13, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStringLength(tt.value, "message", tt.min, tt.max)
			if tt.wantError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "message")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "Test validation error",
		Fields:  map[string]string{"field1": "error1"},
	}

	assert.Equal(t, "Test validation error", err.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "test"}))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestGetValidationFields(t *testing.T) {
	fields := map[string]string{"message": "message is required"}
	assert.Equal(t, fields, GetValidationFields(&ValidationError{Message: "test", Fields: fields}))
	assert.Nil(t, GetValidationFields(assert.AnError))
}
