package resume

import (
	"context"

	"github.com/godbus/dbus/v5"

	apperrors "github.com/GriffinCanCode/replay/internal/errors"
	"github.com/GriffinCanCode/replay/internal/resilience"
)

// bus is the subset of *dbus.Conn used here.
type bus interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// Logind watches systemd-logind's PrepareForSleep signal on the system bus.
// PrepareForSleep(false) is emitted after the machine wakes.
type Logind struct {
	Retry resilience.RetryConfig

	connect func() (bus, error)
}

func connectSystemBus() (bus, error) {
	return dbus.ConnectSystemBus()
}

func (l *Logind) Name() string { return "logind" }

// Subscribe connects with retry and registers the signal match.
func (l *Logind) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	connect := l.connect
	if connect == nil {
		connect = connectSystemBus
	}
	cfg := l.Retry
	if cfg.MaxRetries == 0 {
		cfg = resilience.BusRetryConfig()
	}

	var conn bus
	err := resilience.Retry(ctx, cfg, func() error {
		c, err := connect()
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "connect system bus")
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(LogindPath),
		dbus.WithMatchInterface(LogindInterface),
		dbus.WithMatchMember(LogindMember),
	); err != nil {
		_ = conn.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "match PrepareForSleep")
	}

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer conn.Close()
		defer conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if isWake(sig) {
					notify(out)
				}
			}
		}
	}()
	return out, nil
}

// isWake reports a PrepareForSleep(false) signal.
func isWake(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != LogindInterface+"."+LogindMember || len(sig.Body) != 1 {
		return false
	}
	sleeping, ok := sig.Body[0].(bool)
	return ok && !sleeping
}
