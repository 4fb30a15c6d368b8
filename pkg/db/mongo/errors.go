package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrWriteConflict = errors.New("storage write conflict")
	ErrDuplicateKey  = errors.New("storage duplicate key")
	ErrTimeout       = errors.New("storage timeout")
)

const (
	driverTransientLabel     = "TransientTransactionError"
	driverUnknownCommitLabel = "UnknownTransactionCommitResult"

	codeWriteConflict = 112
)

// Classify tags a driver error with one of the storage sentinels so callers
// can branch with errors.Is. Errors that match none are returned unchanged.
// Duplicate key is checked first: inside a transaction the server may label
// a unique index violation as transient too, and it must never be retried.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrWriteConflict) || errors.Is(err, ErrTimeout) {
		return err
	}

	switch {
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case isWriteConflict(err):
		return fmt.Errorf("%w: %w", ErrWriteConflict, err)
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

func IsWriteConflict(err error) bool {
	return errors.Is(Classify(err), ErrWriteConflict)
}

func IsDuplicateKey(err error) bool {
	return errors.Is(Classify(err), ErrDuplicateKey)
}

func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorLabel(driverTransientLabel) || se.HasErrorCode(codeWriteConflict)
}
