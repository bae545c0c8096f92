// Package buffer holds the rolling, time-bounded collection of captured fragments.
package buffer

import "time"

// RetentionWindow is how far back the buffer keeps fragments.
const RetentionWindow = 60 * time.Second
