package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: config.StorageMemory},
		Journal: config.JournalConfig{Driver: config.JournalStore},
		Sequence: config.SequenceConfig{
			AccountBase:     1001,
			TransactionBase: 5001,
			ErrorLogBase:    1,
		},
		Retry: config.RetryConfig{MaxAttempts: 3},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAppMemory(t *testing.T) {
	ctx := context.Background()

	application, cleanup, err := NewApp(ctx, testConfig(), discard())
	require.NoError(t, err)
	defer cleanup()

	acc, err := application.Service.CreateAccount(ctx, "Alice", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), acc.ID)
	assert.NoError(t, application.Store.Ping(ctx))
}

func TestNewAppRedisJournalResumesErrorLogIDs(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Journal = config.JournalConfig{
		Driver: config.JournalRedis,
		Redis:  config.RedisConfig{Addr: mr.Addr(), Stream: "test:errors"},
	}

	first, cleanup, err := NewApp(ctx, cfg, discard())
	require.NoError(t, err)
	acc, err := first.Service.CreateAccount(ctx, "Bob", decimal.Zero)
	require.NoError(t, err)
	_, err = first.Service.Withdraw(ctx, acc.ID, decimal.NewFromInt(1))
	require.Error(t, err)
	cleanup()

	// a fresh process sharing the stream continues after the last entry
	second, cleanup, err := NewApp(ctx, cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	entry, err := second.Journal.Record(ctx, "restart check", "TEST")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.ID)

	entries, err := second.Service.ErrorLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNewAppRedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Journal = config.JournalConfig{
		Driver: config.JournalTee,
		Redis:  config.RedisConfig{Addr: "127.0.0.1:1"},
	}

	_, _, err := NewApp(context.Background(), cfg, discard())
	assert.ErrorContains(t, err, "redis")
}
