package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

const timeLayout = time.RFC3339Nano

func AccountRow(a *domain.Account) []string {
	return []string{
		strconv.FormatInt(a.ID, 10),
		a.Name,
		a.Balance.StringFixed(2),
		a.CreatedAt.UTC().Format(timeLayout),
	}
}

func TransactionRow(r *domain.TransactionRecord) []string {
	target := ""
	if r.TargetAccountID != nil {
		target = strconv.FormatInt(*r.TargetAccountID, 10)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		strconv.FormatInt(r.AccountID, 10),
		target,
		string(r.Type),
		r.Amount.StringFixed(2),
		r.Timestamp.UTC().Format(timeLayout),
	}
}

func ErrorLogRow(e *domain.ErrorLogEntry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Timestamp.UTC().Format(timeLayout),
		e.Message,
		e.ProcedureName,
	}
}

func WriteAccounts(w io.Writer, accounts []*domain.Account) error {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, AccountRow(a))
	}
	return Encode(w, rows)
}

func WriteTransactions(w io.Writer, records []*domain.TransactionRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, TransactionRow(r))
	}
	return Encode(w, rows)
}

func WriteErrorLogs(w io.Writer, entries []*domain.ErrorLogEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ErrorLogRow(e))
	}
	return Encode(w, rows)
}

// ReadAccounts parses an accounts export.
func ReadAccounts(r io.Reader) ([]*domain.Account, error) {
	rows, err := Decode(r)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for i, row := range rows {
		acc, err := AccountFromRow(row)
		if err != nil {
			return nil, errors.ErrInvalidInput.WithDetails(fmt.Sprintf("line %d: %v", i+1, err))
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func AccountFromRow(row []string) (*domain.Account, error) {
	if len(row) != 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(row))
	}

	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", row[0])
	}
	balance, err := decimal.NewFromString(row[2])
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q", row[2])
	}
	createdAt, err := time.Parse(timeLayout, row[3])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q", row[3])
	}

	return &domain.Account{
		ID:        id,
		Name:      strings.TrimSpace(row[1]),
		Balance:   balance,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}
