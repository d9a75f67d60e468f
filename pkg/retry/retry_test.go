package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/arnavsurve/pagestep/pkg/guard"
	"github.com/arnavsurve/pagestep/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sleeps []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return nil
}

func TestDo_ExhaustsWithDoublingDelays(t *testing.T) {
	rec := &recorder{}
	original := errors.New("element not found")
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{Retries: 2, Delay: time.Second, Sleep: rec.sleep}, func(ctx context.Context) error {
		calls++
		return original
	})

	assert.Same(t, original, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.sleeps)
}

func TestDo_SucceedsAfterFailure(t *testing.T) {
	rec := &recorder{}
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{Retries: 2, Delay: time.Second, Sleep: rec.sleep}, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, rec.sleeps)
}

func TestDo_FatalShortCircuits(t *testing.T) {
	rec := &recorder{}
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{Retries: 5, Delay: time.Second, Sleep: rec.sleep}, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("click: %w", &guard.BlockingDialogError{Text: "Sessione scaduta"})
	})

	assert.True(t, guard.IsFatal(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.sleeps)
}

func TestDo_ZeroRetries(t *testing.T) {
	rec := &recorder{}
	calls := 0
	err := retry.Do(context.Background(), retry.Policy{Retries: 0, Delay: time.Second, Sleep: rec.sleep}, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.sleeps)
}

func TestDo_OnRetry(t *testing.T) {
	var attempts []int
	_ = retry.Do(context.Background(), retry.Policy{
		Retries: 2,
		Delay:   10 * time.Millisecond,
		Sleep:   (&recorder{}).sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) { attempts = append(attempts, attempt) },
	}, func(ctx context.Context) error { return errors.New("x") })

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDefault(t *testing.T) {
	p := retry.Default()
	assert.Equal(t, 2, p.Retries)
	assert.Equal(t, time.Second, p.Delay)
}

func TestDo_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := retry.Do(ctx, retry.Policy{Retries: 3, Delay: time.Second, Sleep: (&recorder{}).sleep}, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("element not found")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
