package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad input", nil), KindValidation},
		{"scheduling is validation", Scheduling("outside business hours"), KindValidation},
		{"wrapped conflict", fmt.Errorf("assign: %w", Conflict("cleaner busy")), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
		{"provider", Provider(errors.New("timeout"), "create order failed"), KindProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestProviderUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Provider(cause, "capture order %s", "ORDER-1")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "capture order ORDER-1: connection reset", err.Error())
	assert.True(t, Is(err, KindProvider))
	assert.False(t, Is(nil, KindProvider))
}

func TestSchedulingCode(t *testing.T) {
	err := Scheduling("hour %d is outside business hours", 21)

	assert.Equal(t, CodeScheduling, err.Code)
	assert.Equal(t, "hour 21 is outside business hours", err.Error())
}
