package mongo

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// maxCommitAttempts bounds retries of a commit whose outcome the server
// reported as unknown. The transaction body itself is never re-run here.
const maxCommitAttempts = 3

// TransactionFunc runs inside a transaction. The ctx it receives carries the
// session, so repository calls made with it join the transaction.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// ExecuteTransaction runs fn exactly once inside a snapshot transaction and
// commits it. Unlike session.WithTransaction it does not retry the body on
// transient errors: those are classified and returned so the caller can
// apply its own bounded retry policy.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", Classify(err))
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	if err := session.StartTransaction(txnOpts); err != nil {
		return fmt.Errorf("failed to start transaction: %w", Classify(err))
	}

	sessCtx := mongo.NewSessionContext(ctx, session)

	if err := fn(sessCtx); err != nil {
		_ = session.AbortTransaction(context.WithoutCancel(ctx))
		if apperrors.IsAppError(err) {
			return err
		}
		return Classify(err)
	}

	for attempt := 1; ; attempt++ {
		err = session.CommitTransaction(sessCtx)
		if err == nil {
			return nil
		}
		if !hasErrorLabel(err, driverUnknownCommitLabel) || attempt >= maxCommitAttempts || ctx.Err() != nil {
			break
		}
	}

	_ = session.AbortTransaction(context.WithoutCancel(ctx))
	return fmt.Errorf("transaction commit failed: %w", Classify(err))
}

func hasErrorLabel(err error, label string) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel(label)
	}
	return false
}
