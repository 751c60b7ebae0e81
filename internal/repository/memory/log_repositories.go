package memory

import (
	"context"
	"sort"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

type transactionRepository struct {
	s *Store
}

func (r *transactionRepository) AppendTransaction(ctx context.Context, record *domain.TransactionRecord) error {
	if record == nil || !record.Type.Valid() || !record.Amount.IsPositive() {
		return errors.NewAppError(errors.InternalError, "malformed transaction record")
	}

	cp := *record
	cp.Timestamp = stamp(cp.Timestamp)
	if cp.TargetAccountID != nil {
		target := *cp.TargetAccountID
		cp.TargetAccountID = &target
	}

	st := r.s.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if r.s.tx != nil {
		r.s.tx.ops = append(r.s.tx.ops, op{kind: opAppendTransaction, record: &cp})
		return nil
	}
	st.transactions = append(st.transactions, &cp)
	return nil
}

func (r *transactionRepository) ListTransactions(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error) {
	st := r.s.state
	st.mu.RLock()
	defer st.mu.RUnlock()

	all := st.transactions
	if r.s.tx != nil {
		all = append(append([]*domain.TransactionRecord(nil), all...), r.s.tx.records()...)
	}

	out := make([]*domain.TransactionRecord, 0, len(all))
	for _, rec := range all {
		if accountID == 0 || rec.Involves(accountID) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *transactionRepository) MaxTransactionID(ctx context.Context) (int64, error) {
	records, err := r.ListTransactions(ctx, 0)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return records[len(records)-1].ID, nil
}

type errorLogRepository struct {
	s *Store
}

func (r *errorLogRepository) AppendErrorLog(ctx context.Context, entry *domain.ErrorLogEntry) error {
	cp := *entry
	cp.Timestamp = stamp(cp.Timestamp)

	st := r.s.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if r.s.tx != nil {
		r.s.tx.ops = append(r.s.tx.ops, op{kind: opAppendErrorLog, entry: &cp})
		return nil
	}
	st.errorLogs = append(st.errorLogs, &cp)
	return nil
}

func (r *errorLogRepository) ListErrorLogs(ctx context.Context) ([]*domain.ErrorLogEntry, error) {
	st := r.s.state
	st.mu.RLock()
	defer st.mu.RUnlock()

	all := st.errorLogs
	if r.s.tx != nil {
		all = append(append([]*domain.ErrorLogEntry(nil), all...), r.s.tx.entries()...)
	}

	out := make([]*domain.ErrorLogEntry, 0, len(all))
	for _, e := range all {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *errorLogRepository) MaxErrorLogID(ctx context.Context) (int64, error) {
	entries, err := r.ListErrorLogs(ctx)
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	return entries[len(entries)-1].ID, nil
}
