package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
)

type opKind int

const (
	opCreateAccount opKind = iota
	opBalanceDelta
	opAppendTransaction
	opAppendErrorLog
)

// op is one buffered write. Writes made inside WithTransaction are only
// applied to the shared state at commit, so a half-done unit of work is never
// observable.
type op struct {
	kind      opKind
	accountID int64
	delta     decimal.Decimal
	account   *domain.Account
	record    *domain.TransactionRecord
	entry     *domain.ErrorLogEntry
}

type txn struct {
	ops        []op
	held       []int64
	savepoints map[string]int
}

func newTxn() *txn {
	return &txn{savepoints: make(map[string]int)}
}

func (t *txn) holds(id int64) bool {
	for _, h := range t.held {
		if h == id {
			return true
		}
	}
	return false
}

func (t *txn) releaseAll(locks *lockTable) {
	// reverse acquisition order
	for i := len(t.held) - 1; i >= 0; i-- {
		locks.release(t.held[i])
	}
	t.held = nil
}

// pendingAccount overlays the buffered writes for id onto base. base may be
// nil when the account is created inside this transaction.
func (t *txn) pendingAccount(id int64, base *domain.Account) *domain.Account {
	var acc *domain.Account
	if base != nil {
		cp := *base
		acc = &cp
	}
	for _, o := range t.ops {
		switch {
		case o.kind == opCreateAccount && o.account.ID == id && acc == nil:
			cp := *o.account
			acc = &cp
		case o.kind == opBalanceDelta && o.accountID == id && acc != nil:
			acc.Balance = acc.Balance.Add(o.delta)
		}
	}
	return acc
}

func (t *txn) createdAccounts() []*domain.Account {
	var out []*domain.Account
	for _, o := range t.ops {
		if o.kind == opCreateAccount {
			out = append(out, t.pendingAccount(o.account.ID, nil))
		}
	}
	return out
}

func (t *txn) records() []*domain.TransactionRecord {
	var out []*domain.TransactionRecord
	for _, o := range t.ops {
		if o.kind == opAppendTransaction {
			out = append(out, o.record)
		}
	}
	return out
}

func (t *txn) entries() []*domain.ErrorLogEntry {
	var out []*domain.ErrorLogEntry
	for _, o := range t.ops {
		if o.kind == opAppendErrorLog {
			out = append(out, o.entry)
		}
	}
	return out
}

func stamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}
