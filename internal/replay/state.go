package replay

import (
	"time"
)

// State is a controller state.
type State int

const (
	// StateIdle means no capture stream is active, either before the first
	// start or after a failed one. Only an external trigger leaves it.
	StateIdle State = iota
	StateRecording
	StateStopping
	StatePlaying
	StateRestartPending
)

var stateNames = [...]string{
	StateIdle:           "IDLE",
	StateRecording:      "RECORDING",
	StateStopping:       "STOPPING",
	StatePlaying:        "PLAYING",
	StateRestartPending: "RESTART_PENDING",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status is a point-in-time read model of the controller.
type Status struct {
	State       State     `json:"state"`
	SessionID   string    `json:"session_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Fragments   int       `json:"fragments"`
	Bytes       int       `json:"bytes"`
	Oldest      time.Time `json:"oldest,omitzero"`
	Newest      time.Time `json:"newest,omitzero"`
	LastAssetID string    `json:"last_asset_id,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Cycles      int       `json:"cycles"`
	UpdatedAt   time.Time `json:"updated_at"`
}
