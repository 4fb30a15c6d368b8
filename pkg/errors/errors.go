package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError so callers can decide how to react without
// parsing codes or messages.
type Kind string

const (
	KindBusinessConflict Kind = "business_conflict"
	KindNotFound         Kind = "not_found"
	KindTransient        Kind = "transient"
	KindPrecondition     Kind = "precondition_violation"
	KindInvalidInput     Kind = "invalid_input"
	KindValidation       Kind = "validation"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindInternal         Kind = "internal"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"

	CodeSlotAlreadyBooked  = "SLOT_ALREADY_BOOKED"
	CodeSlotNotFound       = "SLOT_NOT_FOUND"
	CodeSlotExists         = "SLOT_EXISTS"
	CodeBookingNotFound    = "BOOKING_NOT_FOUND"
	CodeWriteConflict      = "WRITE_CONFLICT"
	CodeTransient          = "TRANSIENT_ERROR"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeMissingDates       = "MISSING_DATES"
)

const detailRetryable = "retryable"

type AppError struct {
	Kind       Kind           `json:"-"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// Retryable reports whether the caller may retry the same request later.
func (e *AppError) Retryable() bool {
	return e.Kind == KindTransient
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kindForStatus(httpStatus),
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kindForStatus(httpStatus),
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func SlotNotFound(id string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       CodeSlotNotFound,
		Message:    "Slot not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"id": id},
	}
}

func BookingNotFound(id string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       CodeBookingNotFound,
		Message:    "Booking not found or already cancelled",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"id": id},
	}
}

func SlotAlreadyBooked(slotID string) *AppError {
	return &AppError{
		Kind:       KindBusinessConflict,
		Code:       CodeSlotAlreadyBooked,
		Message:    "This slot is already booked",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": slotID},
	}
}

func SlotExists() *AppError {
	return &AppError{
		Kind:       KindBusinessConflict,
		Code:       CodeSlotExists,
		Message:    "A slot with the same start and end time already exists",
		HTTPStatus: http.StatusConflict,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Kind:       KindInvalidInput,
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Kind:       KindUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Kind:       KindForbidden,
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Kind:       KindBusinessConflict,
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// Precondition reports a broken ledger invariant. It is always surfaced and
// never repaired by the caller.
func Precondition(message string, err error) *AppError {
	return &AppError{
		Kind:       KindPrecondition,
		Code:       CodePreconditionFailed,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Transient reports a failure the user may retry later, such as exhausted
// write-conflict retries or an unreachable database.
func Transient(code, message string, err error) *AppError {
	return &AppError{
		Kind:       KindTransient,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{detailRetryable: true},
		Err:        err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Kind:       KindTransient,
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{detailRetryable: true},
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Kind:       KindTransient,
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{detailRetryable: true},
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindBusinessConflict
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return KindTransient
	case status >= 400 && status < 500:
		return KindInvalidInput
	default:
		return KindInternal
	}
}
