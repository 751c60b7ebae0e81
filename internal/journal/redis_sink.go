package journal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"ledger/internal/domain"
)

const DefaultStream = "ledger:error_logs"

// RedisSink appends entries to a Redis stream, an append-only log kept
// outside the ledger database.
type RedisSink struct {
	client *redis.Client
	stream string
}

func NewRedisSink(client *redis.Client, stream string) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream}
}

func (s *RedisSink) Append(ctx context.Context, entry *domain.ErrorLogEntry) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":             entry.ID,
			"timestamp":      entry.Timestamp.Format(time.RFC3339Nano),
			"message":        entry.Message,
			"procedure_name": entry.ProcedureName,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisSink) Entries(ctx context.Context) ([]*domain.ErrorLogEntry, error) {
	messages, err := s.client.XRange(ctx, s.stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", s.stream, err)
	}

	entries := make([]*domain.ErrorLogEntry, 0, len(messages))
	for _, msg := range messages {
		entry, err := decodeEntry(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("stream entry %s: %w", msg.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeEntry(values map[string]interface{}) (*domain.ErrorLogEntry, error) {
	field := func(name string) string {
		v, _ := values[name].(string)
		return v
	}

	id, err := strconv.ParseInt(field("id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, field("timestamp"))
	if err != nil {
		return nil, fmt.Errorf("bad timestamp: %w", err)
	}

	return &domain.ErrorLogEntry{
		ID:            id,
		Timestamp:     ts,
		Message:       field("message"),
		ProcedureName: field("procedure_name"),
	}, nil
}
