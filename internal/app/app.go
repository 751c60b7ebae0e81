package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"ledger/internal/config"
	"ledger/internal/domain"
	"ledger/internal/journal"
	"ledger/internal/repository"
	"ledger/internal/repository/memory"
	"ledger/internal/sequence"
	"ledger/internal/service"
)

type App struct {
	Service *service.LedgerService
	Store   domain.Store
	Journal *journal.Journal
}

// NewApp opens the configured store and journal, synchronises the id
// sequences with what is already persisted and returns the wired service.
// cleanup closes everything NewApp opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("Error during cleanup", "error", err)
			}
		}
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, store.Close)

	ids := sequence.New(cfg.Sequence.AccountBase, cfg.Sequence.TransactionBase, cfg.Sequence.ErrorLogBase)

	journalStore, err := openJournalStore(ctx, cfg, store, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if journalStore != store {
		closers = append(closers, journalStore.Close)
	}

	sinks, redisClient, err := openSinks(ctx, cfg, journalStore)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if redisClient != nil {
		closers = append(closers, redisClient.Close)
	}
	jrnl := journal.New(ids, logger, sinks...).WithWriteTimeout(cfg.Journal.WriteTimeout)

	svc := service.NewLedgerService(store, ids, jrnl, service.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
	}, logger)

	if err := svc.SyncSequences(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to synchronise sequences: %w", err)
	}
	if err := resumeFromJournal(ctx, ids, jrnl); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("Ledger initialised",
		"storage", cfg.Storage.Driver,
		"journal", cfg.Journal.Driver)

	return &App{
		Service: svc,
		Store:   store,
		Journal: jrnl,
	}, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Store, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		return memory.NewStore(logger), nil
	}

	db, err := openDB(ctx, cfg, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	if err := repository.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return repository.NewStore(db, logger), nil
}

// openJournalStore returns the store journal entries are written through.
// With PostgreSQL that is a second, small pool: a failing operation journals
// while its own transaction still holds a business connection, so sharing
// the business pool lets enough concurrent failures starve each other.
func openJournalStore(ctx context.Context, cfg *config.Config, store domain.Store, logger *slog.Logger) (domain.Store, error) {
	if cfg.Storage.Driver == config.StorageMemory || cfg.Journal.Driver == config.JournalRedis {
		return store, nil
	}

	db, err := openDB(ctx, cfg, cfg.Journal.MaxConns, cfg.Journal.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("journal pool: %w", err)
	}
	logger.Info("Opened error journal pool", "max_conns", cfg.Journal.MaxConns)
	return repository.NewStore(db, logger), nil
}

func openDB(ctx context.Context, cfg *config.Config, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func openSinks(ctx context.Context, cfg *config.Config, journalStore domain.Store) ([]journal.Sink, *redis.Client, error) {
	if cfg.Journal.Driver == config.JournalStore {
		return []journal.Sink{journal.NewStoreSink(journalStore)}, nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Journal.Redis.Addr,
		Password: cfg.Journal.Redis.Password,
		DB:       cfg.Journal.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	redisSink := journal.NewRedisSink(client, cfg.Journal.Redis.Stream)
	if cfg.Journal.Driver == config.JournalRedis {
		return []journal.Sink{redisSink}, client, nil
	}
	return []journal.Sink{journal.NewStoreSink(journalStore), redisSink}, client, nil
}

// resumeFromJournal keeps error log ids unique when entries live outside
// the store.
func resumeFromJournal(ctx context.Context, ids *sequence.Generator, jrnl *journal.Journal) error {
	entries, err := jrnl.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to read error journal: %w", err)
	}

	var highest int64
	for _, e := range entries {
		if e.ID > highest {
			highest = e.ID
		}
	}
	ids.Resume(0, 0, highest)
	return nil
}
