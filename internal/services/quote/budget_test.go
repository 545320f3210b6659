package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallBudgetSpacing(t *testing.T) {
	const interval = 50 * time.Millisecond
	b := newCallBudget(interval)
	ctx := context.Background()

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		require.NoError(t, b.wait(ctx))
		stamps = append(stamps, time.Now())
	}

	// small tolerance for the gap between the internal dispatch stamp
	// and the one taken here
	const tolerance = 2 * time.Millisecond
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, interval-tolerance, "calls %d and %d dispatched too close", i-1, i)
	}
}

func TestCallBudgetFirstCallImmediate(t *testing.T) {
	b := newCallBudget(time.Hour)

	start := time.Now()
	require.NoError(t, b.wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCallBudgetCancel(t *testing.T) {
	b := newCallBudget(time.Hour)
	require.NoError(t, b.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
