package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alanyang/xactlock/internal/domain/lock"
	portretry "github.com/alanyang/xactlock/internal/port/retry"
)

// Unlimited as Config.Count retries until the attempt succeeds or ctx ends.
const Unlimited = -1

type Config struct {
	// Count is the number of retries after the first attempt.
	Count       int
	Interval    time.Duration
	MaxInterval time.Duration
	Multiplier  float64
}

// DefaultConfig waits one second between attempts and gives up after fifty
// retries.
var DefaultConfig = Config{
	Count:       50,
	Interval:    time.Second,
	MaxInterval: time.Second,
	Multiplier:  1.5,
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("retry interval must be positive, got %s", c.Interval)
	}
	if c.MaxInterval < c.Interval {
		return fmt.Errorf("retry max interval %s is below interval %s", c.MaxInterval, c.Interval)
	}
	if c.MaxInterval > c.Interval && c.Multiplier <= 1 {
		return fmt.Errorf("retry multiplier must be above 1 when max interval exceeds interval, got %v", c.Multiplier)
	}
	return nil
}

// Policy retries with a constant or exponential delay between attempts.
type Policy struct {
	cfg Config
}

var _ portretry.Policy = (*Policy)(nil)

func New(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

func (p *Policy) newBackOff() backoff.BackOff {
	if p.cfg.MaxInterval <= p.cfg.Interval {
		return backoff.NewConstantBackOff(p.cfg.Interval)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.Interval
	b.MaxInterval = p.cfg.MaxInterval
	b.Multiplier = p.cfg.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run calls attempt until it reports success. The wait between attempts ends
// early when ctx is cancelled; a query already in flight is not interrupted.
func (p *Policy) Run(ctx context.Context, attempt portretry.Attempt, interruptedMsg, exhaustedMsg string) error {
	b := p.newBackOff()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for retries := 0; ; retries++ {
		if err := ctx.Err(); err != nil {
			return lock.NewError(lock.KindInterrupted, interruptedMsg, err)
		}
		ok, err := attempt(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if p.cfg.Count >= 0 && retries >= p.cfg.Count {
			return lock.NewError(lock.KindRetriesExceeded, exhaustedMsg, nil)
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return lock.NewError(lock.KindRetriesExceeded, exhaustedMsg, nil)
		}
		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			return lock.NewError(lock.KindInterrupted, interruptedMsg, ctx.Err())
		case <-timer.C:
		}
	}
}
