package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

func (s *LedgerService) CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal) (*domain.Account, error) {
	s.logger.Info("Creating account", "name", name, "initial_balance", initialBalance)

	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if initialBalance.IsNegative() {
		return nil, errors.ErrInvalidAmount.WithDetails("initial balance must not be negative")
	}
	if err := validateScale(initialBalance); err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:      s.ids.NextAccountID(),
		Name:    name,
		Balance: initialBalance,
	}

	if err := s.store.Accounts().CreateAccount(ctx, account); err != nil {
		return nil, s.fail(ctx, domain.ProcedureCreateAccount, err)
	}

	s.logger.Info("Account created successfully", "account_id", account.ID)
	return account, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	return s.store.Accounts().GetAccount(ctx, accountID)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return s.store.Accounts().ListAccounts(ctx)
}

// History lists the records where accountID is the source or the target,
// oldest first.
func (s *LedgerService) History(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Transactions().ListTransactions(ctx, accountID)
}

func (s *LedgerService) AllTransactions(ctx context.Context) ([]*domain.TransactionRecord, error) {
	return s.store.Transactions().ListTransactions(ctx, 0)
}

func (s *LedgerService) ErrorLogs(ctx context.Context) ([]*domain.ErrorLogEntry, error) {
	if s.journal == nil {
		return s.store.ErrorLogs().ListErrorLogs(ctx)
	}
	return s.journal.Entries(ctx)
}

// RestoreAccounts loads previously exported accounts, keeping their ids, into
// a ledger that has none yet. Either every account is inserted or none is.
func (s *LedgerService) RestoreAccounts(ctx context.Context, accounts []*domain.Account) error {
	existing, err := s.store.Accounts().ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return errors.ErrInvalidInput.WithDetails("accounts can only be imported into an empty ledger")
	}

	for _, acc := range accounts {
		if err := validateAccountID(acc.ID); err != nil {
			return err
		}
		if err := validateName(strings.TrimSpace(acc.Name)); err != nil {
			return err
		}
		if acc.Balance.IsNegative() {
			return errors.ErrInvalidAmount.WithDetails("balance must not be negative")
		}
		if err := validateScale(acc.Balance); err != nil {
			return err
		}
	}

	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		for _, acc := range accounts {
			if err := tx.Accounts().CreateAccount(ctx, acc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Account import failed", "count", len(accounts), "error", err)
		return err
	}

	s.logger.Info("Accounts imported", "count", len(accounts))
	return s.SyncSequences(ctx)
}

// validateName rejects names that cannot survive a CSV round trip: the
// reader folds a CRLF inside a quoted field into a bare LF.
func validateName(name string) error {
	if name == "" {
		return errors.ErrInvalidInput.WithDetails("account name must not be empty")
	}
	if strings.ContainsRune(name, '\r') {
		return errors.ErrInvalidInput.WithDetails("account name must not contain carriage returns")
	}
	return nil
}
