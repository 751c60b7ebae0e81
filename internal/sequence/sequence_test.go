package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorStartsAtBases(t *testing.T) {
	g := NewDefault()

	assert.Equal(t, int64(1001), g.NextAccountID())
	assert.Equal(t, int64(1002), g.NextAccountID())
	assert.Equal(t, int64(5001), g.NextTransactionID())
	assert.Equal(t, int64(1), g.NextErrorLogID())
}

func TestGeneratorConcurrentUniqueness(t *testing.T) {
	g := New(1, 1, 1)

	const workers, perWorker = 16, 500
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			prev := int64(0)
			for j := 0; j < perWorker; j++ {
				id := g.NextTransactionID()
				// each caller observes its own values strictly increasing
				assert.Greater(t, id, prev)
				prev = id
				local = append(local, id)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker+1), g.NextTransactionID())
}

func TestResumeNeverMovesBackwards(t *testing.T) {
	g := NewDefault()

	g.Resume(2000, 100, 0)
	assert.Equal(t, int64(2001), g.NextAccountID())
	// 100 is below the transaction base, so the base still wins
	assert.Equal(t, int64(5001), g.NextTransactionID())
	assert.Equal(t, int64(1), g.NextErrorLogID())

	g.Resume(10, 10, 10)
	assert.Equal(t, int64(2002), g.NextAccountID())
	assert.Equal(t, int64(11), g.NextErrorLogID())
}
