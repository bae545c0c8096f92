package replay

import "time"

// Controller timing
const (
	// RestartDelay is how long playback is left to settle before capture resumes.
	RestartDelay = 2 * time.Second

	// ResumeSettle is how long after an accepted resume further resumes are
	// treated as the same wake. Sources detect one wake at different times:
	// the clock gap check lags by up to its poll interval.
	ResumeSettle = 15 * time.Second

	// Buffered fragment events between the capture pump and the loop.
	fragmentQueue = 8
)
