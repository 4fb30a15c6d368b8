package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "validation failed", err.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, KindValidation, err.Kind)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	assert.Same(t, originalErr, wrapped.Err)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, KindInternal, wrapped.Kind)
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	assert.Same(t, originalErr, errors.Unwrap(appErr))
}

func TestAppError_WithDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"field": "slot_id"})

	assert.Equal(t, "slot_id", err.Details["field"])
}

func TestReservationErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		kind   Kind
		code   string
		status int
	}{
		{"slot already booked", SlotAlreadyBooked("s1"), KindBusinessConflict, CodeSlotAlreadyBooked, http.StatusConflict},
		{"slot not found", SlotNotFound("s1"), KindNotFound, CodeSlotNotFound, http.StatusNotFound},
		{"booking not found", BookingNotFound("b1"), KindNotFound, CodeBookingNotFound, http.StatusNotFound},
		{"write conflict", Transient(CodeWriteConflict, "retry", nil), KindTransient, CodeWriteConflict, http.StatusServiceUnavailable},
		{"timeout", Timeout("too slow"), KindTransient, CodeTimeout, http.StatusServiceUnavailable},
		{"precondition", Precondition("holder missing", nil), KindPrecondition, CodePreconditionFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode())
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Transient(CodeTransient, "db down", nil).Retryable())
	assert.True(t, Timeout("deadline").Retryable())
	assert.False(t, SlotAlreadyBooked("s1").Retryable())
	assert.False(t, BookingNotFound("b1").Retryable())
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("claim failed: %w", SlotAlreadyBooked("s1"))

	assert.True(t, IsKind(err, KindBusinessConflict))
	assert.False(t, IsKind(err, KindTransient))
	assert.True(t, HasCode(err, CodeSlotAlreadyBooked))
	assert.False(t, IsKind(errors.New("plain"), KindBusinessConflict))
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(NotFound("Slot")))
	assert.True(t, IsAppError(fmt.Errorf("wrapped: %w", NotFound("Slot"))))
	assert.False(t, IsAppError(errors.New("regular error")))
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Slot")
	regularErr := errors.New("regular error")

	assert.Same(t, appErr, AsAppError(appErr))

	result := AsAppError(regularErr)
	assert.Equal(t, CodeInternal, result.Code)
	assert.Same(t, regularErr, result.Err)
}

func TestAppError_ToJSON(t *testing.T) {
	data := NotFoundWithID("Booking", "12345").ToJSON()
	require.NotEmpty(t, data)

	assert.Contains(t, string(data), "NOT_FOUND")
	assert.Contains(t, string(data), "not found")
	assert.Contains(t, string(data), "12345")
}
