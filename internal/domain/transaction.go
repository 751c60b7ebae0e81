package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit  TransactionType = "DEPOSIT"
	TransactionWithdraw TransactionType = "WITHDRAW"
	TransactionTransfer TransactionType = "TRANSFER"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdraw, TransactionTransfer:
		return true
	}
	return false
}

// TransactionRecord is an immutable ledger movement. TargetAccountID is set
// only for transfers.
type TransactionRecord struct {
	ID              int64           `json:"transaction_id"`
	AccountID       int64           `json:"account_id"`
	TargetAccountID *int64          `json:"target_account_id,omitempty"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Involves reports whether the record moved money in or out of accountID.
func (r *TransactionRecord) Involves(accountID int64) bool {
	return r.AccountID == accountID || (r.TargetAccountID != nil && *r.TargetAccountID == accountID)
}

// TransactionRepository is the append-only transaction log.
type TransactionRepository interface {
	AppendTransaction(ctx context.Context, record *TransactionRecord) error
	// ListTransactions returns records touching accountID in ascending id
	// order; accountID 0 lists the whole log.
	ListTransactions(ctx context.Context, accountID int64) ([]*TransactionRecord, error)
	MaxTransactionID(ctx context.Context) (int64, error)
}
