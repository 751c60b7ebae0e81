// Package memory is the in-process ledger store. It keeps the three
// collections in maps and slices guarded by one RWMutex, gives every account
// its own lock for LockAccount, and buffers the writes of a unit of work
// until commit.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

type state struct {
	mu           sync.RWMutex
	accounts     map[int64]*domain.Account
	transactions []*domain.TransactionRecord
	errorLogs    []*domain.ErrorLogEntry
	locks        *lockTable
}

// Store implements domain.Store. The root store (tx == nil) applies writes
// immediately; stores handed out by WithTransaction buffer them.
type Store struct {
	state  *state
	tx     *txn
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state: &state{
			accounts: make(map[int64]*domain.Account),
			locks:    newLockTable(),
		},
		logger: logger,
	}
}

func (s *Store) Accounts() domain.AccountRepository {
	return &accountRepository{s: s}
}

func (s *Store) Transactions() domain.TransactionRepository {
	return &transactionRepository{s: s}
}

func (s *Store) ErrorLogs() domain.ErrorLogRepository {
	return &errorLogRepository{s: s}
}

// WithTransaction runs fn against a transaction-bound store. Buffered writes
// are applied atomically when fn returns nil and dropped otherwise; account
// locks are released in both cases.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.tx != nil {
		return errors.ErrCannotBeginTransaction
	}

	t := newTxn()
	txStore := &Store{
		state:  s.state,
		tx:     t,
		logger: s.logger,
	}
	defer t.releaseAll(s.state.locks)

	if err := fn(txStore); err != nil {
		return err
	}

	return s.state.commit(t)
}

func (s *Store) Savepoint(ctx context.Context, name string) error {
	if s.tx == nil {
		return errors.NewAppError(errors.InternalError, "savepoint outside a transaction")
	}
	s.tx.savepoints[name] = len(s.tx.ops)
	return nil
}

func (s *Store) RollbackToSavepoint(ctx context.Context, name string) error {
	if s.tx == nil {
		return errors.NewAppError(errors.InternalError, "rollback to savepoint outside a transaction")
	}
	mark, ok := s.tx.savepoints[name]
	if !ok {
		return errors.NewAppErrorf(errors.InternalError, "savepoint %q does not exist", name)
	}

	s.tx.ops = s.tx.ops[:mark]
	for sp, m := range s.tx.savepoints {
		if m > mark {
			delete(s.tx.savepoints, sp)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// commit validates the buffered writes against the current state and applies
// them under one write lock. A debit that would now overdraw an account
// means something decremented it without holding its lock; the whole unit is
// rejected as a conflict.
func (st *state) commit(t *txn) error {
	if len(t.ops) == 0 {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	balances := make(map[int64]decimal.Decimal)
	created := make(map[int64]*domain.Account)
	for _, o := range t.ops {
		switch o.kind {
		case opCreateAccount:
			if _, exists := st.accounts[o.account.ID]; exists {
				return errors.ErrDuplicateAccount.WithDetails("account_id conflict at commit")
			}
			if _, exists := created[o.account.ID]; exists {
				return errors.ErrDuplicateAccount
			}
			created[o.account.ID] = o.account
			balances[o.account.ID] = o.account.Balance
		case opBalanceDelta:
			bal, ok := balances[o.accountID]
			if !ok {
				acc, exists := st.accounts[o.accountID]
				if !exists {
					return errors.ErrAccountNotFound
				}
				bal = acc.Balance
			}
			bal = bal.Add(o.delta)
			if bal.IsNegative() {
				return errors.ErrConcurrencyConflict.WithDetails("balance would become negative at commit")
			}
			if bal.GreaterThanOrEqual(domain.BalanceLimit) {
				return errors.ErrBalanceLimitExceeded.WithDetails(fmt.Sprintf("account %d", o.accountID))
			}
			balances[o.accountID] = bal
		}
	}

	now := time.Now().UTC()
	for _, o := range t.ops {
		switch o.kind {
		case opCreateAccount:
			cp := *o.account
			st.accounts[cp.ID] = &cp
		case opAppendTransaction:
			st.transactions = append(st.transactions, o.record)
		case opAppendErrorLog:
			st.errorLogs = append(st.errorLogs, o.entry)
		}
	}
	for id, bal := range balances {
		acc := st.accounts[id]
		if !acc.Balance.Equal(bal) {
			acc.Balance = bal
			acc.UpdatedAt = now
		}
	}
	return nil
}

// view returns a copy of account id as seen by this store, including the
// writes buffered by its transaction. Callers hold st.mu.
func (s *Store) view(id int64) *domain.Account {
	base := s.state.accounts[id]
	if s.tx == nil {
		if base == nil {
			return nil
		}
		cp := *base
		return &cp
	}
	return s.tx.pendingAccount(id, base)
}

func sortRecords(records []*domain.TransactionRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
