package quote

import (
	"context"
	"sync"
	"time"
)

// callBudget spaces upstream calls at least minInterval apart. The lock
// is held for the whole wait, so calls are strictly serialized: the
// next caller cannot even start measuring its gap until the previous
// call has been dispatched.
type callBudget struct {
	mu          sync.Mutex
	last        time.Time
	minInterval time.Duration
}

func newCallBudget(minInterval time.Duration) *callBudget {
	return &callBudget{minInterval: minInterval}
}

// wait blocks until the minimum interval since the previous dispatch
// has elapsed, then records the new dispatch time before releasing the
// gate. Cancelling ctx aborts the wait without consuming the budget.
func (b *callBudget) wait(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.last.IsZero() {
		if rest := b.minInterval - time.Since(b.last); rest > 0 {
			timer := time.NewTimer(rest)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	b.last = time.Now()
	return nil
}
