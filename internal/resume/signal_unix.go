//go:build unix

package resume

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Signal treats SIGUSR1 as a resume, for hosts that run their own sleep hooks.
type Signal struct{}

func (Signal) Name() string { return "signal" }

func (Signal) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				notify(out)
			}
		}
	}()
	return out, nil
}
