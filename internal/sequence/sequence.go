// Package sequence hands out the identifiers for accounts, transaction
// records and error log entries.
//
// Each kind has its own process-wide counter. Values are strictly increasing
// and never reused while the process lives; Resume moves a counter past the
// ids already present in a persistent store.
package sequence

import "sync/atomic"

const (
	DefaultAccountBase     int64 = 1001
	DefaultTransactionBase int64 = 5001
	DefaultErrorLogBase    int64 = 1
)

// Generator is safe for concurrent use.
type Generator struct {
	account     atomic.Int64
	transaction atomic.Int64
	errorLog    atomic.Int64
}

// New returns a generator whose first values are the given bases.
func New(accountBase, transactionBase, errorLogBase int64) *Generator {
	g := &Generator{}
	g.account.Store(accountBase - 1)
	g.transaction.Store(transactionBase - 1)
	g.errorLog.Store(errorLogBase - 1)
	return g
}

// NewDefault starts accounts at 1001, transactions at 5001 and error log
// entries at 1.
func NewDefault() *Generator {
	return New(DefaultAccountBase, DefaultTransactionBase, DefaultErrorLogBase)
}

func (g *Generator) NextAccountID() int64 {
	return g.account.Add(1)
}

func (g *Generator) NextTransactionID() int64 {
	return g.transaction.Add(1)
}

func (g *Generator) NextErrorLogID() int64 {
	return g.errorLog.Add(1)
}

// Resume guarantees the next value of every counter is greater than the
// matching high-water mark. Counters never move backwards.
func (g *Generator) Resume(accounts, transactions, errorLogs int64) {
	advance(&g.account, accounts)
	advance(&g.transaction, transactions)
	advance(&g.errorLog, errorLogs)
}

func advance(counter *atomic.Int64, seen int64) {
	for {
		cur := counter.Load()
		if cur >= seen {
			return
		}
		if counter.CompareAndSwap(cur, seen) {
			return
		}
	}
}
