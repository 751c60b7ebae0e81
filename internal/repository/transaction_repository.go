package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) AppendTransaction(ctx context.Context, record *domain.TransactionRecord) error {
	query := `
		INSERT INTO transactions
		(id, account_id, target_account_id, type, amount, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	// Handle optional target account
	var target interface{}
	if record.TargetAccountID != nil {
		target = *record.TargetAccountID
	}

	_, err := r.db.ExecContext(ctx,
		query,
		record.ID,
		record.AccountID,
		target,
		string(record.Type),
		record.Amount.String(),
		ts,
	)
	if err != nil {
		r.logger.Error("Failed to append transaction",
			"transaction_id", record.ID,
			"account_id", record.AccountID,
			"type", record.Type,
			"amount", record.Amount,
			"error", err)
		return translate(err, "failed to append transaction")
	}

	record.Timestamp = ts
	r.logger.Info("Transaction appended", "transaction_id", record.ID, "type", record.Type)
	return nil
}

func (r *transactionRepository) ListTransactions(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error) {
	query := `
		SELECT id, account_id, target_account_id, type, amount, timestamp
		FROM transactions
		WHERE $1::bigint = 0 OR account_id = $1::bigint OR target_account_id = $1::bigint
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, translate(err, "failed to list transactions")
	}
	defer rows.Close()

	var records []*domain.TransactionRecord
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "failed to list transactions")
	}
	return records, nil
}

func scanTransaction(rows *sql.Rows) (*domain.TransactionRecord, error) {
	var record domain.TransactionRecord
	var target sql.NullInt64
	var txType, amountStr string

	if err := rows.Scan(&record.ID, &record.AccountID, &target, &txType, &amountStr, &record.Timestamp); err != nil {
		return nil, translate(err, "failed to scan transaction")
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.Internal("failed to parse amount", err)
	}
	record.Amount = amount
	record.Type = domain.TransactionType(txType)

	if target.Valid {
		id := target.Int64
		record.TargetAccountID = &id
	}
	return &record, nil
}

func (r *transactionRepository) MaxTransactionID(ctx context.Context) (int64, error) {
	return maxID(ctx, r.db, "transactions")
}
