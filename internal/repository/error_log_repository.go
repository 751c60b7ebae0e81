package repository

import (
	"context"
	"log/slog"
	"time"

	"ledger/internal/domain"
)

type errorLogRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewErrorLogRepository(db SQLExecutor, logger *slog.Logger) domain.ErrorLogRepository {
	return &errorLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *errorLogRepository) AppendErrorLog(ctx context.Context, entry *domain.ErrorLogEntry) error {
	query := `
		INSERT INTO error_logs (id, timestamp, message, procedure_name)
		VALUES ($1, $2, $3, $4)
	`

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, query, entry.ID, ts, entry.Message, entry.ProcedureName); err != nil {
		r.logger.Error("Failed to append error log", "procedure", entry.ProcedureName, "error", err)
		return translate(err, "failed to append error log")
	}

	entry.Timestamp = ts
	return nil
}

func (r *errorLogRepository) ListErrorLogs(ctx context.Context) ([]*domain.ErrorLogEntry, error) {
	query := `SELECT id, timestamp, message, procedure_name FROM error_logs ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "failed to list error logs")
	}
	defer rows.Close()

	var entries []*domain.ErrorLogEntry
	for rows.Next() {
		var entry domain.ErrorLogEntry
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Message, &entry.ProcedureName); err != nil {
			return nil, translate(err, "failed to scan error log")
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "failed to list error logs")
	}
	return entries, nil
}

func (r *errorLogRepository) MaxErrorLogID(ctx context.Context) (int64, error) {
	return maxID(ctx, r.db, "error_logs")
}
