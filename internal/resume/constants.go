package resume

import "time"

// logind D-Bus names
const (
	LogindPath      = "/org/freedesktop/login1"
	LogindInterface = "org.freedesktop.login1.Manager"
	LogindMember    = "PrepareForSleep"
)

// Clock gap defaults
const (
	DefaultGapInterval  = 5 * time.Second
	DefaultGapThreshold = 30 * time.Second
)
