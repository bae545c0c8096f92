//go:build darwin

package screen

import (
	"context"
	"strconv"
)

// AVFoundation capture; screens are listed by ffmpeg itself.
type darwinPlatform struct{}

func newPlatform() platform { return darwinPlatform{} }

func (darwinPlatform) enumerate(ctx context.Context, b *Backend) ([]Source, error) {
	// -list_devices always exits non-zero; the listing is on stderr
	out, _ := b.output(ctx, nil, b.opts.FFmpegPath, "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	return parseAVFoundationScreens(string(out)), nil
}

func (darwinPlatform) inputArgs(src Source, opts Options) []string {
	return []string{
		"-f", "avfoundation",
		"-capture_cursor", "1",
		"-framerate", strconv.Itoa(opts.Framerate),
		"-i", strconv.Itoa(src.Index) + ":none",
	}
}
