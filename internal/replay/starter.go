package replay

import (
	"context"

	"github.com/GriffinCanCode/replay/internal/capture"
)

// CaptureStarter adapts a capture.Starter to the controller.
func CaptureStarter(s *capture.Starter) Starter { return captureStarter{s} }

type captureStarter struct{ s *capture.Starter }

func (c captureStarter) Start(ctx context.Context, sink capture.Sink) (Session, error) {
	sess, err := c.s.Start(ctx, sink)
	if err != nil {
		return nil, err
	}
	return captureSession{sess}, nil
}

// captureSession exposes the captured screen by id.
type captureSession struct{ *capture.Session }

func (s captureSession) SourceID() string { return s.Source().ID }
