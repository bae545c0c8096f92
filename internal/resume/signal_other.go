//go:build !unix

package resume

import (
	"context"

	apperrors "github.com/GriffinCanCode/replay/internal/errors"
)

// Signal is unavailable where SIGUSR1 does not exist.
type Signal struct{}

func (Signal) Name() string { return "signal" }

func (Signal) Subscribe(context.Context) (<-chan struct{}, error) {
	return nil, apperrors.New(apperrors.CodeUnavailable, "resume signal not supported on this platform")
}
