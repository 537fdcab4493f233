package batch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

type PacerConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// PerMinute caps the request rate on top of the jittered delay. Zero
	// disables the cap.
	PerMinute float64
}

func (c PacerConfig) Validate() error {
	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("pacing delays must be >= 0 (min=%s max=%s)", c.MinDelay, c.MaxDelay)
	}
	if c.MinDelay > c.MaxDelay {
		return fmt.Errorf("pacing min delay %s is greater than max delay %s", c.MinDelay, c.MaxDelay)
	}
	if c.PerMinute < 0 {
		return fmt.Errorf("pacing per_minute must be >= 0")
	}
	return nil
}

// Pacer spaces out provider calls with a uniformly random delay.
type Pacer struct {
	cfg     PacerConfig
	limiter *rate.Limiter
	float   func() float64
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPacer(cfg PacerConfig) (*Pacer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pacer{
		cfg:   cfg,
		float: rand.Float64,
		sleep: sleepContext,
	}
	if cfg.PerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.PerMinute/60.0), 1)
	}
	return p, nil
}

// NextDelay draws the jittered delay for the next wait.
func (p *Pacer) NextDelay() time.Duration {
	span := p.cfg.MaxDelay - p.cfg.MinDelay
	if span <= 0 {
		return p.cfg.MinDelay
	}
	return p.cfg.MinDelay + time.Duration(p.float()*float64(span))
}

// Wait blocks for d, then for the request ceiling if one is configured.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	if err := p.sleep(ctx, d); err != nil {
		return err
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pacing limiter: %w", err)
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
