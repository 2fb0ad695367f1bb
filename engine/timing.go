// Package engine drives one row at a time through navigation, scrolling,
// field extraction and the swatch walk, and runs the whole input list over a
// single shared page session.
package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/use-agent/pdpscrape/metrics"
)

// SleepFunc blocks for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option customises the timing and instrumentation of engine components.
type Option func(*options)

type options struct {
	sleep   SleepFunc
	rng     *rand.Rand
	metrics *metrics.Metrics
}

// WithSleep replaces the real sleep, typically with a recorder in tests.
func WithSleep(fn SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

// WithRand sets the source of randomized step sizes and pauses.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithMetrics attaches run metrics. A nil value disables them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{
		sleep: Sleep,
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// between returns a uniformly random duration in [lo, hi].
func (o *options) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(o.rng.Int64N(int64(hi-lo)+1))
}

// intBetween returns a uniformly random int in [lo, hi].
func (o *options) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + o.rng.IntN(hi-lo+1)
}
