//go:build windows

package screen

import (
	"context"
	"strconv"
)

// GDI capture of the whole virtual desktop.
type windowsPlatform struct{}

func newPlatform() platform { return windowsPlatform{} }

func (windowsPlatform) enumerate(context.Context, *Backend) ([]Source, error) {
	// TODO: enumerate individual monitors via EnumDisplayMonitors and pass offsets to gdigrab
	return []Source{{ID: "screen:0", Name: "desktop", Index: 0}}, nil
}

func (windowsPlatform) inputArgs(_ Source, opts Options) []string {
	return []string{
		"-f", "gdigrab",
		"-draw_mouse", "1",
		"-framerate", strconv.Itoa(opts.Framerate),
		"-i", "desktop",
	}
}
