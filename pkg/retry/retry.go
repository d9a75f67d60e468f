// Package retry runs an operation with bounded attempts and exponential backoff.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/guard"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetries = 2
	DefaultDelay   = time.Second
)

// Policy configures Do. Sleep is called between attempts; nil uses a timer.
type Policy struct {
	Retries int
	Delay   time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Default returns the policy used when nothing is configured.
func Default() Policy {
	return Policy{Retries: DefaultRetries, Delay: DefaultDelay}
}

// Do calls fn up to Retries+1 times. The delay doubles after every failure.
// Fatal errors are returned at once and the last error is returned unchanged.
// A cancelled context stops the loop with the context's error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = browser.Sleep
	}

	exp := &backoff.ExponentialBackOff{
		InitialInterval:     p.Delay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)

	attempt := 0
	notify := func(err error, delay time.Duration) {
		attempt++
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
	}
	op := func() error {
		err := fn(ctx)
		if err != nil && guard.IsFatal(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotifyWithTimer(op, b, notify, &sleepTimer{ctx: ctx, sleep: sleep, c: make(chan time.Time, 1)})
}

// sleepTimer waits through the page so a fake page can record the delays.
type sleepTimer struct {
	ctx   context.Context
	sleep func(ctx context.Context, d time.Duration) error
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	if err := t.sleep(t.ctx, d); err != nil && t.ctx.Err() != nil {
		return
	}
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.c }
