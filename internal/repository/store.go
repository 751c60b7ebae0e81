package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

var savepointName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	db       DB
	logger   *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore creates a new Store instance
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		executor: db,
		db:       db,
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.inTransaction(), s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transactions() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// ErrorLogs always writes through the executor it was built on. The root
// store's executor is the pool, so journal writes made through it commit on
// their own connection regardless of any open business transaction.
func (s *Store) ErrorLogs() domain.ErrorLogRepository {
	return NewErrorLogRepository(s.executor, s.logger)
}

func (s *Store) inTransaction() bool {
	_, ok := s.executor.(*sql.Tx)
	return ok
}

// WithTransaction executes a function within a database transaction.
// The transaction is begun on a context that ignores cancellation: once row
// locks are held the unit of work finishes or rolls back on its own terms.
// Individual statements still see the caller's context.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.inTransaction() {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return translate(err, "failed to begin transaction")
	}

	txStore := &Store{
		executor: tx,
		db:       s.db,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return translate(err, "failed to commit transaction")
	}
	return nil
}

func (s *Store) Savepoint(ctx context.Context, name string) error {
	if err := s.checkSavepoint(name); err != nil {
		return err
	}
	if _, err := s.executor.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", name)); err != nil {
		return translate(err, "failed to create savepoint")
	}
	return nil
}

func (s *Store) RollbackToSavepoint(ctx context.Context, name string) error {
	if err := s.checkSavepoint(name); err != nil {
		return err
	}
	if _, err := s.executor.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name)); err != nil {
		return translate(err, "failed to roll back to savepoint")
	}
	return nil
}

func (s *Store) checkSavepoint(name string) error {
	if !s.inTransaction() {
		return errors.NewAppError(errors.InternalError, "savepoint outside a transaction")
	}
	if !savepointName.MatchString(name) {
		return errors.NewAppErrorf(errors.InternalError, "invalid savepoint name %q", name)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.inTransaction() {
		return nil
	}
	return s.db.Close()
}
