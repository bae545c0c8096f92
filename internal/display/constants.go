// Package display serves the playback surface: a bare page with one video
// element, fed over a WebSocket. It binds to loopback and persists nothing.
package display

import "time"

// Display configuration constants
const (
	// Per-connection deadline for a pushed message
	WriteTimeout = 5 * time.Second

	// Control endpoints accept at most this many requests per window
	ControlRateLimit  = 5
	ControlRateWindow = 10 * time.Second

	// Path the page loads the current asset from
	PlaybackPath = "/api/playback"
)
