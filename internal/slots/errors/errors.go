package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	ErrExists = errors.New("slot with the same start and end time already exists")

	ErrAlreadyBooked = errors.New("slot is already booked")

	ErrHolderRequired = errors.New("a booked slot requires a holder")
)
