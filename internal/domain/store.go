package domain

import "context"

// Store is the unit of work over the three ledger collections. The store
// handed to WithTransaction's callback is bound to that transaction; the
// root store writes outside any caller's transaction.
type Store interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	ErrorLogs() ErrorLogRepository

	// WithTransaction commits when fn returns nil and rolls back otherwise.
	// Locks taken through LockAccount are released when it returns.
	WithTransaction(ctx context.Context, fn func(Store) error) error
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error

	Ping(ctx context.Context) error
	Close() error
}
