// Package journal records operation failures on a write path that is not
// part of the failing operation's unit of work, so a rolled-back operation
// still leaves its diagnostic behind.
package journal

import (
	"context"
	"log/slog"
	"time"

	"ledger/internal/domain"
)

// Sink persists journal entries. Sinks must not write through a
// transaction-bound store.
type Sink interface {
	Append(ctx context.Context, entry *domain.ErrorLogEntry) error
	Entries(ctx context.Context) ([]*domain.ErrorLogEntry, error)
}

// DefaultWriteTimeout bounds one Record call across all sinks.
const DefaultWriteTimeout = 5 * time.Second

// IDSource hands out error log ids.
type IDSource interface {
	NextErrorLogID() int64
}

// Journal assigns ids and timestamps and fans each entry out to its sinks.
// Entries are read back from the first sink.
type Journal struct {
	sinks   []Sink
	ids     IDSource
	timeout time.Duration
	logger  *slog.Logger
}

func New(ids IDSource, logger *slog.Logger, sinks ...Sink) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		sinks:   sinks,
		ids:     ids,
		timeout: DefaultWriteTimeout,
		logger:  logger,
	}
}

// WithWriteTimeout replaces the bound on a single Record call. Non-positive
// values keep the current bound.
func (j *Journal) WithWriteTimeout(d time.Duration) *Journal {
	if d > 0 {
		j.timeout = d
	}
	return j
}

// Record appends one entry to every sink. Every sink is attempted; the first
// error is returned. The caller's cancellation is ignored, but the write as
// a whole gives up after the journal's write timeout so a starved sink cannot
// hold the caller's account locks indefinitely.
func (j *Journal) Record(ctx context.Context, message, procedure string) (*domain.ErrorLogEntry, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
	defer cancel()

	entry := &domain.ErrorLogEntry{
		ID:            j.ids.NextErrorLogID(),
		Timestamp:     time.Now().UTC(),
		Message:       message,
		ProcedureName: procedure,
	}

	var firstErr error
	for _, sink := range j.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			j.logger.Error("Failed to write error journal entry",
				"error_log_id", entry.ID,
				"procedure", procedure,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	j.logger.Warn("Operation failure journaled",
		"error_log_id", entry.ID,
		"procedure", procedure,
		"message", message)
	return entry, firstErr
}

func (j *Journal) Entries(ctx context.Context) ([]*domain.ErrorLogEntry, error) {
	if len(j.sinks) == 0 {
		return nil, nil
	}
	return j.sinks[0].Entries(ctx)
}
