package ratelimiter_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WanHui888/wechat-article-exporter-sub001/pkg/ratelimiter"
)

// waitForDepth polls until the queue has seen at least n tickets (waiting or
// already granted), so tests can submit callers in a deterministic order.
func waitForDepth(t *testing.T, q *ratelimiter.Queue, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Len()+int(q.Grants()) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue never reached depth %d", n)
}

// grantLog is a slog.Handler capturing the caller of every grant record in
// emission order. The queue logs each grant before waking the waiter, so the
// captured sequence is the true grant sequence regardless of goroutine
// scheduling on the waiter side.
type grantLog struct {
	mu      sync.Mutex
	callers []string
}

func (g *grantLog) Enabled(context.Context, slog.Level) bool { return true }

func (g *grantLog) Handle(_ context.Context, rec slog.Record) error {
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == "caller" {
			g.mu.Lock()
			g.callers = append(g.callers, a.Value.String())
			g.mu.Unlock()
			return false
		}
		return true
	})
	return nil
}

func (g *grantLog) WithAttrs([]slog.Attr) slog.Handler { return g }
func (g *grantLog) WithGroup(string) slog.Handler      { return g }

func (g *grantLog) snapshot() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.callers...)
}

func TestQueueFIFOOrder(t *testing.T) {
	t.Parallel()

	grants := &grantLog{}
	q := ratelimiter.NewQueue(
		ratelimiter.WithBaseInterval(20*time.Millisecond),
		ratelimiter.WithLogger(slog.New(grants)),
	)

	const n = 8
	var joined sync.WaitGroup
	for i := range n {
		joined.Add(1)
		caller := fmt.Sprintf("c%d", i)
		go func() {
			defer joined.Done()
			if err := q.Enqueue(context.Background(), caller); err != nil {
				t.Error(err)
			}
		}()
		waitForDepth(t, q, i+1)
	}
	joined.Wait()

	want := make([]string, 0, n)
	for i := range n {
		want = append(want, fmt.Sprintf("c%d", i))
	}
	require.Len(t, grants.snapshot(), n)
	assert.Equal(t, want, grants.snapshot(), "grants must follow enqueue order")
}

func TestQueueSpacing(t *testing.T) {
	t.Parallel()

	const base = 50 * time.Millisecond
	q := ratelimiter.NewQueue(ratelimiter.WithBaseInterval(base))

	var grants []time.Time
	for range 3 {
		require.NoError(t, q.Enqueue(context.Background(), "caller"))
		grants = append(grants, time.Now())
	}

	for i := 1; i < len(grants); i++ {
		gap := grants[i].Sub(grants[i-1])
		assert.GreaterOrEqual(t, gap, base*9/10, "grant %d too close to grant %d", i, i-1)
	}
}

func TestQueueSlowdown(t *testing.T) {
	t.Parallel()

	t.Run("elevated spacing during window", func(t *testing.T) {
		t.Parallel()

		const slow = 60 * time.Millisecond
		q := ratelimiter.NewQueue(
			ratelimiter.WithBaseInterval(5*time.Millisecond),
			ratelimiter.WithSlowInterval(slow),
		)

		q.Slowdown(time.Second)

		require.NoError(t, q.Enqueue(context.Background(), "caller"))
		first := time.Now()
		require.NoError(t, q.Enqueue(context.Background(), "caller"))

		assert.GreaterOrEqual(t, time.Since(first), slow*9/10)
	})

	t.Run("second trigger escalates geometrically", func(t *testing.T) {
		t.Parallel()

		const slow = 40 * time.Millisecond
		q := ratelimiter.NewQueue(
			ratelimiter.WithBaseInterval(5*time.Millisecond),
			ratelimiter.WithSlowInterval(slow),
			ratelimiter.WithGrowthFactor(2.0),
		)

		q.Slowdown(time.Second)
		q.Slowdown(time.Second) // escalates to 2x the floor

		require.NoError(t, q.Enqueue(context.Background(), "caller"))
		first := time.Now()
		require.NoError(t, q.Enqueue(context.Background(), "caller"))

		assert.GreaterOrEqual(t, time.Since(first), 2*slow*9/10)
	})

	t.Run("escalation is capped", func(t *testing.T) {
		t.Parallel()

		const slow = 30 * time.Millisecond
		q := ratelimiter.NewQueue(
			ratelimiter.WithBaseInterval(5*time.Millisecond),
			ratelimiter.WithSlowInterval(slow),
			ratelimiter.WithSlowMax(slow), // cap at the floor itself
			ratelimiter.WithGrowthFactor(4.0),
		)

		for range 5 {
			q.Slowdown(time.Second)
		}

		require.NoError(t, q.Enqueue(context.Background(), "caller"))
		first := time.Now()
		require.NoError(t, q.Enqueue(context.Background(), "caller"))

		gap := time.Since(first)
		assert.GreaterOrEqual(t, gap, slow*9/10)
		assert.Less(t, gap, 4*slow, "cap must bound the escalation")
	})

	t.Run("reset restores floor", func(t *testing.T) {
		t.Parallel()

		const slow = 40 * time.Millisecond
		q := ratelimiter.NewQueue(
			ratelimiter.WithBaseInterval(5*time.Millisecond),
			ratelimiter.WithSlowInterval(slow),
			ratelimiter.WithGrowthFactor(8.0),
		)

		q.Slowdown(time.Second)
		q.Slowdown(time.Second)
		q.ResetSpeed()

		require.NoError(t, q.Enqueue(context.Background(), "caller"))
		first := time.Now()
		require.NoError(t, q.Enqueue(context.Background(), "caller"))

		gap := time.Since(first)
		assert.GreaterOrEqual(t, gap, slow*9/10)
		assert.Less(t, gap, 4*slow, "escalated interval must be back at the floor")
	})
}

func TestQueueAbandonedTurnStillConsumed(t *testing.T) {
	t.Parallel()

	const base = 80 * time.Millisecond
	q := ratelimiter.NewQueue(ratelimiter.WithBaseInterval(base))

	// First caller is granted immediately.
	require.NoError(t, q.Enqueue(context.Background(), "c1"))
	firstGrant := time.Now()

	// Second caller gives up almost immediately, but its slot stays queued.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, "c2")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Third caller must still wait out both spacing gaps.
	require.NoError(t, q.Enqueue(context.Background(), "c3"))
	assert.GreaterOrEqual(t, time.Since(firstGrant), 2*base*9/10)
}

func TestNewQueueFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		q, err := ratelimiter.NewQueueFromConfig(ratelimiter.DefaultConfig())
		require.NoError(t, err)
		assert.NotNil(t, q)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()

		cases := map[string]ratelimiter.Config{
			"zero base":        {SlowInterval: time.Second, SlowMax: time.Minute, GrowthFactor: 2},
			"zero slow":        {BaseInterval: time.Second, SlowMax: time.Minute, GrowthFactor: 2},
			"cap below floor":  {BaseInterval: time.Second, SlowInterval: time.Minute, SlowMax: time.Second, GrowthFactor: 2},
			"growth too small": {BaseInterval: time.Second, SlowInterval: 2 * time.Second, SlowMax: time.Minute, GrowthFactor: 1},
		}

		for name, cfg := range cases {
			_, err := ratelimiter.NewQueueFromConfig(cfg)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig, name)
		}
	})
}
