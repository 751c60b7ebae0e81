package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

type accountRepository struct {
	s *Store
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	st := r.s.state
	cp := *account
	cp.CreatedAt = stamp(cp.CreatedAt)
	cp.UpdatedAt = cp.CreatedAt

	st.mu.Lock()
	defer st.mu.Unlock()

	if r.s.view(cp.ID) != nil {
		r.s.logger.Warn("Duplicate account creation attempt", "account_id", cp.ID)
		return errors.ErrDuplicateAccount
	}

	account.CreatedAt, account.UpdatedAt = cp.CreatedAt, cp.UpdatedAt
	if r.s.tx != nil {
		r.s.tx.ops = append(r.s.tx.ops, op{kind: opCreateAccount, account: &cp})
		return nil
	}

	st.accounts[cp.ID] = &cp
	r.s.logger.Debug("Account created", "account_id", cp.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	r.s.state.mu.RLock()
	defer r.s.state.mu.RUnlock()

	acc := r.s.view(id)
	if acc == nil {
		return nil, errors.ErrAccountNotFound
	}
	return acc, nil
}

func (r *accountRepository) LockAccount(ctx context.Context, id int64) (*domain.Account, error) {
	t := r.s.tx
	if t == nil {
		return nil, errors.NewAppError(errors.InternalError, "account lock requires a transaction")
	}

	if _, err := r.GetAccount(ctx, id); err != nil {
		return nil, err
	}

	if !t.holds(id) {
		if err := r.s.state.locks.acquire(ctx, id); err != nil {
			r.s.logger.Warn("Account lock not acquired", "account_id", id, "error", err)
			return nil, errors.ErrConcurrencyConflict.WithDetails(err.Error())
		}
		t.held = append(t.held, id)
	}

	return r.GetAccount(ctx, id)
}

func (r *accountRepository) AddToBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	st := r.s.state
	st.mu.Lock()
	defer st.mu.Unlock()

	acc := r.s.view(id)
	if acc == nil {
		return errors.ErrAccountNotFound
	}
	next := acc.Balance.Add(delta)
	if next.IsNegative() {
		return errors.ErrInsufficientBalance
	}
	if next.GreaterThanOrEqual(domain.BalanceLimit) {
		return errors.ErrBalanceLimitExceeded.WithDetails(fmt.Sprintf("account %d", id))
	}

	if r.s.tx != nil {
		r.s.tx.ops = append(r.s.tx.ops, op{kind: opBalanceDelta, accountID: id, delta: delta})
		return nil
	}

	stored := st.accounts[id]
	stored.Balance = stored.Balance.Add(delta)
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// DebitIfSufficient checks and buffers the debit under the state lock. Inside
// a transaction the caller holds the account lock, so no other debit can
// interleave before commit; commit re-checks the result anyway.
func (r *accountRepository) DebitIfSufficient(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	st := r.s.state
	st.mu.Lock()
	defer st.mu.Unlock()

	acc := r.s.view(id)
	if acc == nil {
		return false, errors.ErrAccountNotFound
	}
	if acc.Balance.LessThan(amount) {
		return false, nil
	}

	if r.s.tx != nil {
		r.s.tx.ops = append(r.s.tx.ops, op{kind: opBalanceDelta, accountID: id, delta: amount.Neg()})
		return true, nil
	}

	stored := st.accounts[id]
	stored.Balance = stored.Balance.Sub(amount)
	stored.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	st := r.s.state
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*domain.Account, 0, len(st.accounts))
	for id := range st.accounts {
		out = append(out, r.s.view(id))
	}
	if r.s.tx != nil {
		out = append(out, r.s.tx.createdAccounts()...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *accountRepository) MaxAccountID(ctx context.Context) (int64, error) {
	accounts, err := r.ListAccounts(ctx)
	if err != nil || len(accounts) == 0 {
		return 0, err
	}
	return accounts[len(accounts)-1].ID, nil
}
