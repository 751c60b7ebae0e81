package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/app"
	"ledger/internal/config"
	"ledger/internal/errors"
)

func init() {
	pterm.DisableStyling()
}

// sharedLedger keeps one in-memory ledger alive across command runs.
func sharedLedger(t *testing.T) AppFactory {
	t.Helper()

	cfg := &config.Config{
		Storage:  config.StorageConfig{Driver: config.StorageMemory},
		Journal:  config.JournalConfig{Driver: config.JournalStore},
		Sequence: config.SequenceConfig{AccountBase: 1001, TransactionBase: 5001, ErrorLogBase: 1},
		Retry:    config.RetryConfig{MaxAttempts: 3},
	}
	application, cleanup, err := app.NewApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return func(ctx context.Context, configPath string) (*app.App, func(), error) {
		return application, func() {}, nil
	}
}

func run(t *testing.T, factory AppFactory, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, &out, &errOut, factory)
	return code, out.String(), errOut.String()
}

func TestCommandsAndExitCodes(t *testing.T) {
	factory := sharedLedger(t)

	code, out, _ := run(t, factory, "account", "create", "--name", "Alice", "--balance", "5000")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Account 1001 created")

	code, _, _ = run(t, factory, "account", "create", "-n", "Bob", "-b", "3000")
	require.Equal(t, 0, code)

	code, out, _ = run(t, factory, "deposit", "1001", "2000")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "transaction 5001")

	code, _, _ = run(t, factory, "withdraw", "1002", "500")
	require.Equal(t, 0, code)

	code, _, errOut := run(t, factory, "withdraw", "1002", "4000")
	assert.Equal(t, errors.ExitInsufficientBalance, code)
	assert.Contains(t, errOut, "insufficient_balance")

	code, _, _ = run(t, factory, "transfer", "1001", "1002", "1000")
	require.Equal(t, 0, code)

	code, out, _ = run(t, factory, "account", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "6000.00")
	assert.Contains(t, out, "3500.00")

	code, out, _ = run(t, factory, "history", "1002")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "TRANSFER")

	code, out, _ = run(t, factory, "errors")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Insufficient balance for account 1002")

	code, _, _ = run(t, factory, "account", "get", "9999")
	assert.Equal(t, errors.ExitNotFound, code)

	code, _, _ = run(t, factory, "deposit", "1001", "0")
	assert.Equal(t, errors.ExitInvalidInput, code)

	code, _, _ = run(t, factory, "transfer", "1001", "1001", "1")
	assert.Equal(t, errors.ExitInvalidInput, code)

	code, _, _ = run(t, factory, "deposit", "1001")
	assert.Equal(t, errors.ExitInvalidInput, code)

	code, _, _ = run(t, factory, "account", "create", "--bogus")
	assert.Equal(t, errors.ExitInvalidInput, code)
}

func TestHelpExplainsMemoryDriverDoesNotPersist(t *testing.T) {
	opened := false
	factory := func(ctx context.Context, configPath string) (*app.App, func(), error) {
		opened = true
		return nil, nil, errors.ErrInvalidInput
	}

	code, out, _ := run(t, factory, "--help")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "does not persist between runs")
	assert.Contains(t, out, "LEDGER_STORAGE_DRIVER=postgres")
	assert.False(t, opened)
}

func TestExportImportRoundTrip(t *testing.T) {
	source := sharedLedger(t)
	run(t, source, "account", "create", "--name", `Ann "A"`, "--balance", "12.34")
	run(t, source, "account", "create", "--name", "Ben", "--balance", "0")

	file := filepath.Join(t.TempDir(), "accounts.csv")
	code, _, _ := run(t, source, "export", "accounts", "--output", file)
	require.Equal(t, 0, code)

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), `"1001","Ann ""A""","12.34",`))

	target := sharedLedger(t)
	code, out, _ := run(t, target, "import", "accounts", file)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Imported 2 accounts")

	_, exported, _ := run(t, source, "export", "accounts")
	_, reimported, _ := run(t, target, "export", "accounts")
	assert.Equal(t, exported, reimported)

	code, _, _ = run(t, target, "import", "accounts", file)
	assert.Equal(t, errors.ExitInvalidInput, code)

	code, out, _ = run(t, target, "account", "create", "--name", "Cid")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Account 1003 created")
}

func TestExportTransactionsAndErrorLogs(t *testing.T) {
	factory := sharedLedger(t)
	run(t, factory, "account", "create", "--name", "Dee", "--balance", "1")
	run(t, factory, "deposit", "1001", "1")
	run(t, factory, "withdraw", "1001", "5")

	code, out, _ := run(t, factory, "export", "transactions")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, `"5001","1001","","DEPOSIT","1.00",`))

	code, out, _ = run(t, factory, "export", "error-logs")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"Insufficient balance for account 1001","WITHDRAW"`)
}
