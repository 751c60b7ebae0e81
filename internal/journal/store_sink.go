package journal

import (
	"context"

	"ledger/internal/domain"
)

// StoreSink writes to the error_logs collection of a root store. The root
// store never joins a caller's transaction: PostgreSQL autocommits the insert
// on its own pooled connection, the memory store applies it immediately.
type StoreSink struct {
	repo domain.ErrorLogRepository
}

func NewStoreSink(root domain.Store) *StoreSink {
	return &StoreSink{repo: root.ErrorLogs()}
}

func (s *StoreSink) Append(ctx context.Context, entry *domain.ErrorLogEntry) error {
	return s.repo.AppendErrorLog(ctx, entry)
}

func (s *StoreSink) Entries(ctx context.Context) ([]*domain.ErrorLogEntry, error) {
	return s.repo.ListErrorLogs(ctx)
}
