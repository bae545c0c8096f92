package resume

import (
	"context"
	"time"
)

// ClockGap infers a resume from the wall clock jumping further than a
// ticker interval allows. Monotonic readings stop while the machine sleeps,
// so only wall time is compared.
type ClockGap struct {
	Interval  time.Duration
	Threshold time.Duration
	Now       func() time.Time
}

func (g *ClockGap) Name() string { return "clock" }

func (g *ClockGap) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	interval, threshold := g.Interval, g.Threshold
	if interval <= 0 {
		interval = DefaultGapInterval
	}
	if threshold <= 0 {
		threshold = DefaultGapThreshold
	}
	now := g.Now
	if now == nil {
		now = time.Now
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := now().Round(0)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := now().Round(0)
				if cur.Sub(prev) > interval+threshold {
					notify(out)
				}
				prev = cur
			}
		}
	}()
	return out, nil
}
