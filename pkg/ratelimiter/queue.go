package ratelimiter

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Default spacing values. The baseline keeps steady-state traffic under the
// upstream's per-account thresholds; the elevated values apply after the
// upstream has already pushed back.
const (
	DefaultBaseInterval = 200 * time.Millisecond
	DefaultSlowInterval = 2 * time.Second
	DefaultSlowMax      = time.Minute
	DefaultGrowthFactor = 2.0
)

// Config holds queue configuration with environment variable support.
type Config struct {
	BaseInterval time.Duration `env:"RATELIMIT_BASE_INTERVAL" envDefault:"200ms"`
	SlowInterval time.Duration `env:"RATELIMIT_SLOW_INTERVAL" envDefault:"2s"`
	SlowMax      time.Duration `env:"RATELIMIT_SLOW_MAX" envDefault:"1m"`
	GrowthFactor float64       `env:"RATELIMIT_GROWTH_FACTOR" envDefault:"2.0"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BaseInterval: DefaultBaseInterval,
		SlowInterval: DefaultSlowInterval,
		SlowMax:      DefaultSlowMax,
		GrowthFactor: DefaultGrowthFactor,
	}
}

// Ticket is an enqueued waiter. Ordering is purely FIFO; there is no priority
// field.
type Ticket struct {
	CallerID   string
	EnqueuedAt time.Time

	granted chan struct{}
}

// Queue is a process-wide FIFO admission queue. All outbound upstream calls
// must pass through a single shared Queue instance.
type Queue struct {
	mu      sync.Mutex
	waiters []*Ticket
	// draining reports whether a drain goroutine is currently running. The
	// loop exits when the queue empties and is restarted by the next Enqueue.
	draining  bool
	lastGrant time.Time

	base     time.Duration
	slowFlr  time.Duration
	elevated time.Duration // next window's interval, escalated per Slowdown
	slowMax  time.Duration
	growth   float64

	slowUntil    time.Time
	windowIntvl  time.Duration // interval in effect for the active window
	logger       *slog.Logger
	grantCounter uint64
}

// Option is a functional option for configuring the Queue.
type Option func(*Queue)

// WithBaseInterval sets the minimum spacing between grants in steady state.
func WithBaseInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.base = d
		}
	}
}

// WithSlowInterval sets the floor of the elevated interval.
func WithSlowInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.slowFlr = d
			q.elevated = d
		}
	}
}

// WithSlowMax caps how far repeated Slowdown calls can escalate the elevated
// interval.
func WithSlowMax(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.slowMax = d
		}
	}
}

// WithGrowthFactor sets the multiplier applied to the elevated interval on
// each Slowdown call. Values at or below 1 are ignored.
func WithGrowthFactor(f float64) Option {
	return func(q *Queue) {
		if f > 1 {
			q.growth = f
		}
	}
}

// WithLogger sets the logger for queue state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// NewQueue creates an admission queue with default spacing.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		base:     DefaultBaseInterval,
		slowFlr:  DefaultSlowInterval,
		elevated: DefaultSlowInterval,
		slowMax:  DefaultSlowMax,
		growth:   DefaultGrowthFactor,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// NewQueueFromConfig creates a Queue from configuration. Additional options
// override config values.
func NewQueueFromConfig(cfg Config, opts ...Option) (*Queue, error) {
	if cfg.BaseInterval <= 0 || cfg.SlowInterval <= 0 || cfg.SlowMax < cfg.SlowInterval {
		return nil, ErrInvalidConfig
	}
	if cfg.GrowthFactor <= 1 {
		return nil, ErrInvalidConfig
	}

	base := []Option{
		WithBaseInterval(cfg.BaseInterval),
		WithSlowInterval(cfg.SlowInterval),
		WithSlowMax(cfg.SlowMax),
		WithGrowthFactor(cfg.GrowthFactor),
	}
	return NewQueue(append(base, opts...)...), nil
}

// Enqueue appends the caller to the queue and blocks until its turn is
// granted. Returns ctx.Err() if the context expires first; the abandoned slot
// is still drained in order and consumes its spacing.
func (q *Queue) Enqueue(ctx context.Context, callerID string) error {
	t := &Ticket{
		CallerID:   callerID,
		EnqueuedAt: time.Now(),
		granted:    make(chan struct{}),
	}

	q.mu.Lock()
	q.waiters = append(q.waiters, t)
	if !q.draining {
		q.draining = true
		go q.drain()
	}
	q.mu.Unlock()

	select {
	case <-t.granted:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Slowdown activates the elevated spacing for the given window and
// geometrically escalates the elevated interval for subsequent triggers, up
// to the configured cap. Safe to call from response-handling paths at any
// frequency.
func (q *Queue) Slowdown(window time.Duration) {
	if window <= 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.slowUntil = time.Now().Add(window)
	q.windowIntvl = q.elevated

	next := time.Duration(float64(q.elevated) * q.growth)
	if next > q.slowMax {
		next = q.slowMax
	}
	q.elevated = next

	q.logger.Warn("rate limiter slowdown",
		slog.Duration("window", window),
		slog.Duration("interval", q.windowIntvl),
		slog.Duration("next_interval", q.elevated))
}

// ResetSpeed restores the elevated interval to its floor. An active slowdown
// window keeps running but drops to the floor interval.
func (q *Queue) ResetSpeed() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.elevated = q.slowFlr
	if q.windowIntvl > q.slowFlr {
		q.windowIntvl = q.slowFlr
	}

	q.logger.Info("rate limiter speed reset", slog.Duration("interval", q.slowFlr))
}

// Len returns the number of callers currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

// Grants returns the total number of grants issued. Used by ordering tests.
func (q *Queue) Grants() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.grantCounter
}

// drain pops waiters in FIFO order, sleeping out the remaining spacing before
// each grant. Exits when the queue empties; Enqueue restarts it.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.waiters) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}

		head := q.waiters[0]
		q.waiters = q.waiters[1:]

		now := time.Now()
		wait := q.lastGrant.Add(q.requiredInterval(now)).Sub(now)
		q.mu.Unlock()

		if wait > 0 {
			time.Sleep(wait)
		}

		q.mu.Lock()
		q.lastGrant = time.Now()
		q.grantCounter++
		seq := q.grantCounter
		q.mu.Unlock()

		// Logged before the waiter wakes, so the record sequence is the
		// grant sequence.
		q.logger.Debug("turn granted",
			slog.String("caller", head.CallerID),
			slog.Uint64("seq", seq))

		close(head.granted)
	}
}

// requiredInterval returns the spacing in effect at the given moment. Callers
// must hold q.mu.
func (q *Queue) requiredInterval(now time.Time) time.Duration {
	if now.Before(q.slowUntil) {
		return q.windowIntvl
	}
	return q.base
}
