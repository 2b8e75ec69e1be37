// Package ratelimiter provides a strictly ordered FIFO admission queue with
// adaptive spacing between grants.
//
// Unlike a token bucket, which allows bursts and does not order callers, this
// limiter exists to protect a single shared upstream credential pool from
// rate-based abuse detection: every outbound call, regardless of which caller
// issues it, passes through one queue and is granted in exact enqueue order
// with a minimum time gap between consecutive grants.
//
// # Admission
//
//	queue := ratelimiter.NewQueue()
//
//	if err := queue.Enqueue(ctx, callerID); err != nil {
//		return err // caller gave up waiting
//	}
//	// granted: issue exactly one upstream call
//
// Enqueue blocks until the caller's turn is granted. Grant order is strict
// FIFO with no priorities and no starvation. A caller whose context expires
// while waiting stops blocking, but its queue position still consumes a grant
// slot: the drain loop spaces it like any other entry. This keeps the spacing
// guarantee intact even under caller churn.
//
// # Adaptive slowdown
//
// When a caller observes an upstream abuse or verification response, it calls
// Slowdown with a window duration. For that window every grant is spaced by
// the elevated interval instead of the baseline. Each Slowdown call also
// geometrically escalates the elevated interval itself, up to a cap, so
// repeated upstream pushback stretches the gap further and further.
// ResetSpeed restores the elevated interval to its floor; it is caller-driven,
// never automatic.
//
// The queue is a process-wide bottleneck by design. Horizontally scaled
// instances each run their own queue against the same upstream; coordinating
// them is out of scope here.
package ratelimiter
