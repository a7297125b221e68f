package dbhandler

import (
	"context"
	"database/sql"

	"github.com/behrang/sqlbatch"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const sqlStateSerializationFailure = "40001"

// DBHandler contains a connection to database.
type DBHandler struct {
	DB *sql.DB
}

// Batch creates a transaction and executes the batch of commands in that transaction.
// If a retryable error is received, the batch is retried.
func (handler DBHandler) Batch(opts *sql.TxOptions, commands []sqlbatch.Command) ([]interface{}, error) {

	for {
		results, err := handler.tryBatch(opts, commands)
		if isRetryable(err) {
			logrus.StandardLogger().WithField("type", "infrastructure/dbhandler").Warnf("🟡 Retryable Postgres error, retrying: %v", err)
			continue
		}
		return results, err
	}
}

func (handler DBHandler) tryBatch(opts *sql.TxOptions, commands []sqlbatch.Command) (results []interface{}, err error) {

	results = make([]interface{}, len(commands))

	tx, err := handler.DB.BeginTx(context.Background(), opts)
	if err != nil {
		return
	}
	defer tx.Rollback()

	results, err = sqlbatch.Batch(tx, commands)

	if err == nil {
		err = tx.Commit()
	}

	return
}

// Transact runs fn inside a single transaction and commits when fn succeeds.
// Like Batch, the whole unit is retried on serialization failures, so fn must
// not keep state across calls.
func (handler DBHandler) Transact(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := handler.tryTransact(ctx, opts, fn)
		if isRetryable(err) {
			logrus.StandardLogger().WithField("type", "infrastructure/dbhandler").Warnf("🟡 Retryable Postgres error, retrying: %v", err)
			continue
		}
		return err
	}
}

func (handler DBHandler) tryTransact(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {

	tx, err := handler.DB.BeginTx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit transaction")
}

func isRetryable(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == sqlStateSerializationFailure
}
