package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

const transferSavepoint = "transfer_start"

// BalanceFunc receives the locked balance and returns the balance to store.
type BalanceFunc func(balance decimal.Decimal) (decimal.Decimal, error)

// Deposit credits accountID. Credits commute, so no account lock is taken;
// the increment and its record still commit as one unit.
func (s *LedgerService) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	s.logger.Info("Processing deposit", "account_id", accountID, "amount", amount)

	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var record *domain.TransactionRecord
	err := s.withRetry(ctx, domain.ProcedureDeposit, func() error {
		return s.store.WithTransaction(ctx, func(tx domain.Store) error {
			if err := tx.Accounts().AddToBalance(ctx, accountID, amount); err != nil {
				return err
			}
			rec := s.newRecord(accountID, nil, domain.TransactionDeposit, amount)
			if err := tx.Transactions().AppendTransaction(ctx, rec); err != nil {
				return err
			}
			record = rec
			return nil
		})
	})
	if err != nil {
		return nil, s.fail(ctx, domain.ProcedureDeposit, err)
	}

	s.logger.Info("Deposit completed", "transaction_id", record.ID, "account_id", accountID)
	return record, nil
}

func (s *LedgerService) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	s.logger.Info("Processing withdrawal", "account_id", accountID, "amount", amount)

	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	procedure := domain.ProcedureWithdraw
	var record *domain.TransactionRecord

	debit := func(balance decimal.Decimal) (decimal.Decimal, error) {
		if balance.LessThan(amount) {
			return balance, s.rejectInsufficient(ctx, procedure, accountID, balance, amount)
		}
		return balance.Sub(amount), nil
	}
	logRecord := func(ctx context.Context, tx domain.Store) error {
		rec := s.newRecord(accountID, nil, domain.TransactionWithdraw, amount)
		if err := tx.Transactions().AppendTransaction(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	}

	if _, err := s.mutateLocked(ctx, accountID, procedure, debit, logRecord); err != nil {
		return nil, s.fail(ctx, procedure, err)
	}

	s.logger.Info("Withdrawal completed", "transaction_id", record.ID, "account_id", accountID)
	return record, nil
}

// WithLock runs fn with the balance of accountID while holding its exclusive
// lock and stores the balance fn returns. The difference is applied as a
// relative change, so credits that landed without the lock are kept.
func (s *LedgerService) WithLock(ctx context.Context, accountID int64, procedure string, fn BalanceFunc) (*domain.Account, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}

	account, err := s.mutateLocked(ctx, accountID, procedure, fn, nil)
	if err != nil {
		return nil, s.fail(ctx, procedure, err)
	}
	return account, nil
}

// mutateLocked is the single path for locked single-account changes. then,
// when set, runs in the same unit of work after the balance change.
func (s *LedgerService) mutateLocked(
	ctx context.Context,
	accountID int64,
	procedure string,
	fn BalanceFunc,
	then func(ctx context.Context, tx domain.Store) error,
) (*domain.Account, error) {
	var account *domain.Account

	err := s.withRetry(ctx, procedure, func() error {
		return s.store.WithTransaction(ctx, func(tx domain.Store) error {
			locked, err := tx.Accounts().LockAccount(ctx, accountID)
			if err != nil {
				return err
			}

			// the lock is held: finish without watching the caller's deadline
			lctx := context.WithoutCancel(ctx)
			return s.locked(lctx, procedure, func() error {
				next, err := fn(locked.Balance)
				if err != nil {
					return err
				}
				if next.IsNegative() {
					return s.rejectInsufficient(lctx, procedure, accountID, locked.Balance, locked.Balance.Sub(next))
				}
				if err := validateScale(next); err != nil {
					return err
				}

				if err := s.applyDelta(lctx, tx, accountID, next.Sub(locked.Balance)); err != nil {
					return err
				}
				if then != nil {
					if err := then(lctx, tx); err != nil {
						return err
					}
				}

				account, err = tx.Accounts().GetAccount(lctx, accountID)
				return err
			})
		})
	})
	return account, err
}

func (s *LedgerService) applyDelta(ctx context.Context, tx domain.Store, accountID int64, delta decimal.Decimal) error {
	switch {
	case delta.IsZero():
		return nil
	case delta.IsPositive():
		return tx.Accounts().AddToBalance(ctx, accountID, delta)
	}

	ok, err := tx.Accounts().DebitIfSufficient(ctx, accountID, delta.Neg())
	if err != nil {
		return err
	}
	if !ok {
		// only possible if something debited the account without its lock
		return errors.ErrConcurrencyConflict.WithDetails(fmt.Sprintf("balance of account %d changed under lock", accountID))
	}
	return nil
}

type transferState int

const (
	transferStarted transferState = iota
	transferSourceDebited
	transferDestinationCredited
	transferLogged
	transferRolledBack
)

func (st transferState) String() string {
	switch st {
	case transferStarted:
		return "Started"
	case transferSourceDebited:
		return "SourceDebited"
	case transferDestinationCredited:
		return "DestinationCredited"
	case transferLogged:
		return "Logged"
	case transferRolledBack:
		return "RolledBack"
	}
	return fmt.Sprintf("transferState(%d)", int(st))
}

// transfer carries one attempt of a transfer through its states.
type transfer struct {
	s      *LedgerService
	tx     domain.Store
	from   int64
	to     int64
	amount decimal.Decimal
	state  transferState
	before decimal.Decimal
	record *domain.TransactionRecord
}

func (t *transfer) advance(next transferState) {
	t.s.logger.Debug("Transfer state",
		"from_account_id", t.from,
		"to_account_id", t.to,
		"from_state", t.state.String(),
		"to_state", next.String())
	t.state = next
}

func (s *LedgerService) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	s.logger.Info("Processing transfer",
		"from_account_id", fromID,
		"to_account_id", toID,
		"amount", amount)

	if err := validateAccountID(fromID); err != nil {
		return nil, err
	}
	if err := validateAccountID(toID); err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, errors.ErrSameAccountTransfer
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	// fixed global lock order
	first, second := fromID, toID
	if first > second {
		first, second = second, first
	}

	var record *domain.TransactionRecord
	err := s.withRetry(ctx, domain.ProcedureTransfer, func() error {
		return s.store.WithTransaction(ctx, func(tx domain.Store) error {
			if _, err := tx.Accounts().LockAccount(ctx, first); err != nil {
				return err
			}
			if _, err := tx.Accounts().LockAccount(ctx, second); err != nil {
				return err
			}

			t := &transfer{s: s, tx: tx, from: fromID, to: toID, amount: amount}
			lctx := context.WithoutCancel(ctx)
			if err := s.locked(lctx, domain.ProcedureTransfer, func() error { return t.run(lctx) }); err != nil {
				return err
			}
			record = t.record
			return nil
		})
	})
	if err != nil {
		return nil, s.fail(ctx, domain.ProcedureTransfer, err)
	}

	s.logger.Info("Transfer completed successfully", "transaction_id", record.ID)
	return record, nil
}

func (t *transfer) run(ctx context.Context) error {
	accounts := t.tx.Accounts()

	source, err := accounts.GetAccount(ctx, t.from)
	if err != nil {
		return err
	}
	t.before = source.Balance
	if err := t.tx.Savepoint(ctx, transferSavepoint); err != nil {
		return err
	}

	ok, err := accounts.DebitIfSufficient(ctx, t.from, t.amount)
	if err != nil {
		return t.rollback(ctx, err)
	}
	if !ok {
		t.advance(transferRolledBack)
		return t.s.rejectInsufficient(ctx, domain.ProcedureTransfer, t.from, t.before, t.amount)
	}
	t.advance(transferSourceDebited)

	if err := accounts.AddToBalance(ctx, t.to, t.amount); err != nil {
		return t.rollback(ctx, err)
	}
	t.advance(transferDestinationCredited)

	record := t.s.newRecord(t.from, &t.to, domain.TransactionTransfer, t.amount)
	if err := t.tx.Transactions().AppendTransaction(ctx, record); err != nil {
		return t.rollback(ctx, err)
	}
	t.record = record
	t.advance(transferLogged)
	return nil
}

// rollback undoes everything since the savepoint and checks that the source
// balance is back at its pre-transfer value. cause is returned unchanged
// when the undo succeeds.
func (t *transfer) rollback(ctx context.Context, cause error) error {
	t.advance(transferRolledBack)

	if err := t.tx.RollbackToSavepoint(ctx, transferSavepoint); err != nil {
		t.s.logger.Error("Transfer rollback to savepoint failed", "error", err, "cause", cause)
		return errors.Internal("transfer rollback failed", fmt.Errorf("%w (cause: %v)", err, cause))
	}

	source, err := t.tx.Accounts().GetAccount(ctx, t.from)
	if err != nil {
		return err
	}
	if !source.Balance.Equal(t.before) {
		return errors.NewAppError(errors.InternalError, "transfer rollback left the source balance changed").
			WithDetails(fmt.Sprintf("account %d: expected %s, found %s", t.from, t.before, source.Balance))
	}
	return cause
}
