// Package resume detects the host waking from sleep.
//
// Several independent sources can report a resume; Merge fans them into one
// channel the controller subscribes to once at startup.
package resume

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/GriffinCanCode/replay/internal/config"
)

// Source delivers a zero-payload notification each time the host resumes.
// The returned channel closes when ctx is cancelled or the source dies.
type Source interface {
	Name() string
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// FromConfig builds the sources enabled in cfg. logind exists only on Linux.
func FromConfig(cfg *config.Config) []Source {
	var sources []Source
	if cfg.HasResumeSource(config.ResumeLogind) && runtime.GOOS == "linux" {
		sources = append(sources, &Logind{})
	}
	if cfg.HasResumeSource(config.ResumeClock) {
		sources = append(sources, &ClockGap{Interval: cfg.ClockGapInterval, Threshold: cfg.ClockGapThreshold})
	}
	if cfg.HasResumeSource(config.ResumeSignal) {
		sources = append(sources, &Signal{})
	}
	return sources
}

// Merge subscribes to every source once and forwards their notifications.
// Sources subscribe concurrently. Bursts coalesce into a single pending
// notification. A source that fails to subscribe is logged and skipped. The
// channel closes when every source has ended.
func Merge(ctx context.Context, log *slog.Logger, sources ...Source) <-chan struct{} {
	if log == nil {
		log = slog.Default()
	}
	out := make(chan struct{}, 1)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			ch, err := src.Subscribe(ctx)
			if err != nil {
				log.Warn("resume source unavailable", "source", src.Name(), "error", err)
				return
			}
			log.Info("resume source subscribed", "source", src.Name())
			for range ch {
				log.Info("resume detected", "source", src.Name())
				notify(out)
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// notify sends without blocking; a pending notification already covers it.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
