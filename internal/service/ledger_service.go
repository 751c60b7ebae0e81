package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
	"ledger/internal/sequence"
)

// amountScale is the number of fractional digits money carries.
const amountScale = 2

var maxAmount = domain.BalanceLimit

// ErrorJournal records failures outside the failing operation's unit of work.
type ErrorJournal interface {
	Record(ctx context.Context, message, procedure string) (*domain.ErrorLogEntry, error)
	Entries(ctx context.Context) ([]*domain.ErrorLogEntry, error)
}

// RetryPolicy bounds the internal retries of concurrency conflicts.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 10 * time.Millisecond,
}

// LedgerService is the operation executor: it validates requests, takes the
// account locks, and runs every balance mutation together with its log
// append as one unit of work on the store.
type LedgerService struct {
	store   domain.Store
	ids     *sequence.Generator
	journal ErrorJournal
	retry   RetryPolicy
	logger  *slog.Logger
}

func NewLedgerService(
	store domain.Store,
	ids *sequence.Generator,
	journal ErrorJournal,
	retry RetryPolicy,
	logger *slog.Logger,
) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &LedgerService{
		store:   store,
		ids:     ids,
		journal: journal,
		retry:   retry,
		logger:  logger,
	}
}

// SyncSequences moves the id generator past every id already in the store.
func (s *LedgerService) SyncSequences(ctx context.Context) error {
	accounts, err := s.store.Accounts().MaxAccountID(ctx)
	if err != nil {
		return err
	}
	transactions, err := s.store.Transactions().MaxTransactionID(ctx)
	if err != nil {
		return err
	}
	errorLogs, err := s.store.ErrorLogs().MaxErrorLogID(ctx)
	if err != nil {
		return err
	}

	s.ids.Resume(accounts, transactions, errorLogs)
	s.logger.Info("Sequences synchronised",
		"max_account_id", accounts,
		"max_transaction_id", transactions,
		"max_error_log_id", errorLogs)
	return nil
}

// withRetry runs op, retrying concurrency conflicts with exponential backoff
// up to the policy's attempt limit. Any other error ends the loop at once.
func (s *LedgerService) withRetry(ctx context.Context, procedure string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	if s.retry.InitialInterval > 0 {
		policy.InitialInterval = s.retry.InitialInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.retry.MaxAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if stderrors.Is(err, errors.ErrConcurrencyConflict) {
			s.logger.Warn("Concurrency conflict",
				"procedure", procedure,
				"attempt", attempt,
				"error", err)
			return err
		}
		return backoff.Permanent(err)
	}, b)

	if err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)) {
		return errors.ErrConcurrencyConflict.WithDetails(err.Error())
	}
	return err
}

// fail finishes a failed call. Caller-facing rejections are returned as is
// (funds rejections were journaled while the lock was held); anything else
// is journaled with its raw text first.
func (s *LedgerService) fail(ctx context.Context, procedure string, err error) error {
	if errors.IsBusinessError(err) {
		s.logger.Info("Operation rejected", "procedure", procedure, "error", err)
		return err
	}

	s.logger.Error("Operation failed", "procedure", procedure, "error", err)
	s.record(ctx, rawMessage(err), procedure)
	return err
}

// record writes to the journal. A journal failure is logged and never
// replaces the error being reported.
func (s *LedgerService) record(ctx context.Context, message, procedure string) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(ctx, message, procedure); err != nil {
		s.logger.Error("Error journal write failed", "procedure", procedure, "error", err)
	}
}

// locked runs fn while account locks are held. A panic inside fn is
// journaled and then propagated unchanged.
func (s *LedgerService) locked(ctx context.Context, procedure string, fn func() error) error {
	defer func() {
		if p := recover(); p != nil {
			s.record(ctx, fmt.Sprint(p), procedure)
			panic(p)
		}
	}()
	return fn()
}

// rejectInsufficient journals the funds rejection and returns the
// caller-facing error. It runs while the account lock is held.
func (s *LedgerService) rejectInsufficient(ctx context.Context, procedure string, accountID int64, balance, amount decimal.Decimal) error {
	s.record(ctx, fmt.Sprintf("Insufficient balance for account %d", accountID), procedure)
	return errors.ErrInsufficientBalance.WithDetails(
		fmt.Sprintf("account %d has %s, requested %s", accountID, balance.StringFixed(amountScale), amount.StringFixed(amountScale)))
}

func (s *LedgerService) newRecord(accountID int64, target *int64, txType domain.TransactionType, amount decimal.Decimal) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:              s.ids.NextTransactionID(),
		AccountID:       accountID,
		TargetAccountID: target,
		Type:            txType,
		Amount:          amount,
		Timestamp:       time.Now().UTC(),
	}
}

func rawMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Details != "" {
		return appErr.Details
	}
	return err.Error()
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	return validateScale(amount)
}

func validateScale(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(amountScale)) {
		return errors.ErrInvalidAmount.WithDetails("at most two decimal places are allowed")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return errors.ErrInvalidAmount.WithDetails("amount exceeds maximum limit")
	}
	return nil
}

func validateAccountID(id int64) error {
	if id <= 0 {
		return errors.ErrInvalidAccountID
	}
	return nil
}
