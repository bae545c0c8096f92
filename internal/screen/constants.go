// Package screen enumerates capturable screens and opens live encoded
// streams on them through an external ffmpeg process.
package screen

import "time"

// Capture defaults
const (
	DefaultFFmpegPath = "ffmpeg"
	DefaultFramerate  = 15
	DefaultBitrate    = "2M"

	// MimeType is the container/codec of every opened stream.
	MimeType = "video/webm; codecs=vp9"

	// Time allowed for ffmpeg to produce its first byte before the
	// acquisition is treated as rejected (permissions, busy display).
	AcquireTimeout = 5 * time.Second

	// Bytes of ffmpeg stderr kept for error reports.
	StderrTailSize = 4096

	// Cluster length in milliseconds; one keyframe per cluster.
	ClusterMillis = 1000
)
