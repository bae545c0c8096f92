//go:build linux

package screen

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/GriffinCanCode/replay/internal/errors"
)

// X11 capture; monitors come from xrandr, frames from ffmpeg x11grab.
type linuxPlatform struct{}

func newPlatform() platform { return linuxPlatform{} }

func (linuxPlatform) enumerate(ctx context.Context, b *Backend) ([]Source, error) {
	if b.opts.X11Display == "" {
		return nil, apperrors.New(apperrors.CodeCaptureUnavailable, "no X11 display configured")
	}
	if err := b.require("xrandr"); err != nil {
		return nil, err
	}
	out, err := b.output(ctx, []string{"DISPLAY=" + b.opts.X11Display}, "xrandr", "--listmonitors")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureUnavailable, "list monitors").
			WithMetadata("display", b.opts.X11Display).
			WithMetadata("output", string(out))
	}
	return parseXrandrMonitors(string(out)), nil
}

func (linuxPlatform) inputArgs(src Source, opts Options) []string {
	input := opts.X11Display
	size := src.Bounds.Size()
	args := []string{"-f", "x11grab", "-draw_mouse", "1", "-framerate", strconv.Itoa(opts.Framerate)}
	if size.X > 0 && size.Y > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", size.X, size.Y))
		input = fmt.Sprintf("%s+%d,%d", opts.X11Display, src.Bounds.Min.X, src.Bounds.Min.Y)
	}
	return append(args, "-i", input)
}
