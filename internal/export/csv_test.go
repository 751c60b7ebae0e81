package export

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

func TestEncodeQuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, [][]string{
		{"1001", `Ann "the" Bank`, "5.00"},
		{"", "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, "\"1001\",\"Ann \"\"the\"\" Bank\",\"5.00\"\n\"\",\"x\"\n", buf.String())
}

func TestDecodeIsInverseOfEncode(t *testing.T) {
	rows := [][]string{
		{"a,b", `say "hi"`, ""},
		{"line\nbreak", "c", "d"},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rows))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, decoded)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := Decode(strings.NewReader("\"unterminated\n"))
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestAccountsRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	accounts := []*domain.Account{
		{ID: 1001, Name: "Alice", Balance: decimal.RequireFromString("7000"), CreatedAt: created},
		{ID: 1002, Name: `Bob, "B"`, Balance: decimal.RequireFromString("0.05"), CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	restored, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, restored, len(accounts))
	for i, acc := range accounts {
		assert.Equal(t, acc.ID, restored[i].ID)
		assert.Equal(t, acc.Name, restored[i].Name)
		assert.True(t, acc.Balance.Equal(restored[i].Balance))
		assert.True(t, acc.CreatedAt.Equal(restored[i].CreatedAt))
	}
}

func TestReadAccountsReportsLine(t *testing.T) {
	_, err := ReadAccounts(strings.NewReader("\"1001\",\"A\",\"1.00\",\"2024-01-01T00:00:00Z\"\n\"x\",\"B\",\"1\",\"2024-01-01T00:00:00Z\"\n"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "line 2")
}

func TestTransactionRowLeavesTargetEmptyForSingleAccountMoves(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	target := int64(1002)

	deposit := TransactionRow(&domain.TransactionRecord{
		ID: 5001, AccountID: 1001, Type: domain.TransactionDeposit, Amount: decimal.NewFromInt(20), Timestamp: ts,
	})
	assert.Equal(t, []string{"5001", "1001", "", "DEPOSIT", "20.00", "2024-01-02T03:04:05Z"}, deposit)

	transfer := TransactionRow(&domain.TransactionRecord{
		ID: 5002, AccountID: 1001, TargetAccountID: &target, Type: domain.TransactionTransfer, Amount: decimal.NewFromInt(1), Timestamp: ts,
	})
	assert.Equal(t, "1002", transfer[2])
}

func TestErrorLogRowColumnOrder(t *testing.T) {
	row := ErrorLogRow(&domain.ErrorLogEntry{
		ID:            3,
		Timestamp:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Message:       "Insufficient balance for account 1002",
		ProcedureName: domain.ProcedureWithdraw,
	})
	assert.Equal(t, []string{"3", "2024-01-02T03:04:05Z", "Insufficient balance for account 1002", "WITHDRAW"}, row)
}
