package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

const accountColumns = `id, name, balance, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	inTx   bool
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, inTx bool, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		inTx:   inTx,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		query,
		account.ID,
		account.Name,
		account.Balance.String(),
		createdAt,
		createdAt,
	)
	if err != nil {
		mapped := translate(err, "failed to create account")
		if stderrors.Is(mapped, errors.ErrDuplicateAccount) {
			r.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
		} else {
			r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		}
		return mapped
	}

	account.CreatedAt = createdAt
	account.UpdatedAt = createdAt
	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return r.scanAccount(r.db.QueryRowContext(ctx, query, id), id)
}

// LockAccount takes the row lock with SELECT ... FOR UPDATE. The lock lives
// until the surrounding transaction commits or rolls back.
func (r *accountRepository) LockAccount(ctx context.Context, id int64) (*domain.Account, error) {
	if !r.inTx {
		return nil, errors.NewAppError(errors.InternalError, "account lock requires a transaction")
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	return r.scanAccount(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *accountRepository) scanAccount(row *sql.Row, id int64) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := row.Scan(
		&account.ID,
		&account.Name,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, translate(err, "failed to get account")
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_id", id, "balance_str", balanceStr, "error", err)
		return nil, errors.Internal("failed to parse balance", err)
	}

	account.Balance = balance
	return &account, nil
}

func (r *accountRepository) AddToBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, delta.String(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return translate(err, "failed to update account balance")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account balance updated", "account_id", id, "delta", delta)
	return nil
}

// DebitIfSufficient is a single conditional UPDATE; the balance guard is
// evaluated by the same statement that applies the decrement.
func (r *accountRepository) DebitIfSufficient(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = $2
		WHERE id = $3 AND balance >= $1
	`

	result, err := r.db.ExecContext(ctx, query, amount.String(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to debit account", "account_id", id, "error", err)
		return false, translate(err, "failed to debit account")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Internal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		// either the balance is short or the account vanished
		if _, err := r.GetAccount(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	r.logger.Info("Account debited", "account_id", id, "amount", amount)
	return true, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "failed to list accounts")
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		var balanceStr string
		if err := rows.Scan(&account.ID, &account.Name, &balanceStr, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, translate(err, "failed to scan account")
		}
		if account.Balance, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, errors.Internal("failed to parse balance", err)
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "failed to list accounts")
	}
	return accounts, nil
}

func (r *accountRepository) MaxAccountID(ctx context.Context) (int64, error) {
	return maxID(ctx, r.db, "accounts")
}

// maxID returns the highest id in table, 0 when it is empty. table is
// always one of the package's own constants.
func maxID(ctx context.Context, db SQLExecutor, table string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM `+table).Scan(&id)
	if err != nil {
		return 0, translate(err, "failed to read max id of "+table)
	}
	return id, nil
}
