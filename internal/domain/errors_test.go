package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Region not found",
			code:      ErrCodeRegionNotFound,
			message:   "region \"spleen\" not found",
			details:   "no authored content exists for this region",
			requestID: "req-123",
		},
		{
			name:      "Persistence failure",
			code:      ErrCodePersistence,
			message:   "could not write preference",
			details:   "disk full",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAppError(tt.code, tt.message, tt.details, tt.requestID)

			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.details, err.Details)
			assert.Equal(t, tt.requestID, err.RequestID)
			assert.WithinDuration(t, time.Now().UTC(), err.Timestamp, time.Minute)
			assert.Equal(t, tt.code+": "+tt.message, err.Error())
		})
	}
}

func TestRegionNotFoundError_UnwrapsToSentinel(t *testing.T) {
	err := NewRegionNotFoundError("spleen", "req-1")
	wrapped := fmt.Errorf("fetching region: %w", err)

	assert.True(t, errors.Is(wrapped, ErrRegionNotFound))
	assert.Equal(t, ErrCodeRegionNotFound, CodeOf(wrapped))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("level", "must be between 1 and 5", 7)

	assert.Equal(t, "validation error for field 'level': must be between 1 and 5", err.Error())
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestCodeOf_Unknown(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
}

func TestModuleAndLevelErrors(t *testing.T) {
	err := NewModuleNotFoundError("gout", "req-2")
	assert.True(t, errors.Is(err, ErrModuleNotFound))
	assert.Equal(t, ErrCodeModuleNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), `"gout"`)

	lvl := NewInvalidLevelError(9, "")
	assert.Equal(t, ErrCodeInvalidLevel, CodeOf(lvl))
	assert.Equal(t, "INVALID_COMPLEXITY_LEVEL: complexity level 9 is outside 1..5", lvl.Error())
}
