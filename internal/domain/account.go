package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceLimit is the exclusive upper bound of every amount and balance,
// the largest value NUMERIC(17,2) holds plus one cent.
var BalanceLimit = decimal.New(1, 15)

type Account struct {
	ID        int64           `json:"account_id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountRepository is the account store. Every balance decrement goes
// through LockAccount followed by DebitIfSufficient inside one unit of work.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	// LockAccount takes the exclusive lock on id until the enclosing unit
	// of work ends and returns the locked state.
	LockAccount(ctx context.Context, id int64) (*Account, error)
	AddToBalance(ctx context.Context, id int64, delta decimal.Decimal) error
	// DebitIfSufficient subtracts amount only if the balance covers it.
	// It reports false, with nothing changed, when it does not.
	DebitIfSufficient(ctx context.Context, id int64, amount decimal.Decimal) (bool, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	MaxAccountID(ctx context.Context) (int64, error)
}
