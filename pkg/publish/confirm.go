package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fulmenhq/otapublish/pkg/logger"
)

// ConfirmPolicy shapes the existence confirmation loop.
// A zero Timeout waits until the store reports every asset.
type ConfirmPolicy struct {
	InitialDelay time.Duration
	Step         time.Duration
	MaxDelay     time.Duration
	Timeout      time.Duration
}

// DefaultConfirmPolicy waits 1s, 2s, ... up to 5s between checks.
func DefaultConfirmPolicy() ConfirmPolicy {
	return ConfirmPolicy{
		InitialDelay: time.Second,
		Step:         time.Second,
		MaxDelay:     5 * time.Second,
		Timeout:      15 * time.Minute,
	}
}

// linearBackOff grows by a fixed step up to a cap.
type linearBackOff struct {
	initial time.Duration
	step    time.Duration
	max     time.Duration
	current time.Duration
	started bool
}

var _ backoff.BackOff = (*linearBackOff)(nil)

func newLinearBackOff(p ConfirmPolicy) *linearBackOff {
	return &linearBackOff{initial: p.InitialDelay, step: p.Step, max: p.MaxDelay}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	if !b.started {
		b.started = true
		b.current = b.initial
	} else {
		b.current += b.step
	}
	if b.max > 0 && b.current > b.max {
		b.current = b.max
	}
	return b.current
}

func (b *linearBackOff) Reset() {
	b.started = false
	b.current = 0
}

// confirm re-checks pending until the store reports all of them. Each
// iteration's delay runs concurrently with its existence query.
func (p *Publisher) confirm(ctx context.Context, pending []Asset, totalUnique int) error {
	if len(pending) == 0 {
		return nil
	}

	confirmCtx := ctx
	if p.opts.Confirm.Timeout > 0 {
		var cancel context.CancelFunc
		confirmCtx, cancel = context.WithTimeout(ctx, p.opts.Confirm.Timeout)
		defer cancel()
	}

	b := newLinearBackOff(p.opts.Confirm)
	for iteration := 1; ; iteration++ {
		delay := b.NextBackOff()
		wait := p.after(delay)

		still, err := p.filterExisting(confirmCtx, pending)
		if err != nil {
			return p.confirmFailure(ctx, confirmCtx, pending, err)
		}
		pending = still
		p.progress(totalUnique, len(pending))
		logger.Debug("Confirmation check", logger.Int("iteration", iteration), logger.Int("pending", len(pending)))

		if len(pending) == 0 {
			return nil
		}

		select {
		case <-wait:
		case <-confirmCtx.Done():
			return p.confirmFailure(ctx, confirmCtx, pending, confirmCtx.Err())
		}
	}
}

func (p *Publisher) confirmFailure(ctx, confirmCtx context.Context, pending []Asset, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(confirmCtx.Err(), context.DeadlineExceeded) {
		return &ConfirmationTimeoutError{Timeout: p.opts.Confirm.Timeout, PendingKeys: storageKeys(pending)}
	}
	return fmt.Errorf("failed to confirm uploaded assets: %w", err)
}
