package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, JournalStore, cfg.Journal.Driver)
	assert.Equal(t, 2, cfg.Journal.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Journal.WriteTimeout)
	assert.Equal(t, int64(1001), cfg.Sequence.AccountBase)
	assert.Equal(t, int64(5001), cfg.Sequence.TransactionBase)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Empty(t, cfg.ConfigPath)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")
	content := `
storage:
  driver: postgres
database:
  host: db.internal
  port: 6543
journal:
  driver: tee
retry:
  initial_interval: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("LEDGER_DATABASE_NAME", "ledger_test")
	t.Setenv("LEDGER_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, JournalTee, cfg.Journal.Driver)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, path, cfg.ConfigPath)
	assert.Equal(t,
		"host=db.internal port=6543 user=postgres password=password dbname=ledger_test sslmode=disable",
		cfg.GetDBConnectionString())
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_STORAGE_DRIVER", "sqlite")

	_, err := Load("")
	assert.ErrorContains(t, err, "storage.driver")
}

func TestLoadRejectsEmptyJournalPool(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_STORAGE_DRIVER", "postgres")
	t.Setenv("LEDGER_JOURNAL_MAX_CONNS", "0")

	_, err := Load("")
	assert.ErrorContains(t, err, "journal.max_conns")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "key=value")
	assert.True(t, logger.Enabled(t.Context(), slog.LevelError))
}
