package buffer

import "time"

// Fragment is one timestamped slice of encoded media. Immutable once created.
type Fragment struct {
	CapturedAt time.Time
	Payload    []byte
	// Header is the container initialization data, set on the first fragment
	// a recording emits. Later fragments are only playable after it.
	Header []byte
}

// Rolling is an ordered, time-bounded fragment buffer. It is not safe for
// concurrent use; the replay controller is its single owner.
type Rolling struct {
	window time.Duration
	now    func() time.Time
	frags  []Fragment
	header []byte
}

// New creates a buffer that retains fragments captured within window of now.
func New(window time.Duration, now func() time.Time) *Rolling {
	if window <= 0 {
		window = RetentionWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Rolling{window: window, now: now}
}

// Append inserts f at the end and trims every fragment captured before
// now-window. Insertion order is chronological, so eviction only walks the
// oldest end. A fragment exactly at the cutoff is kept.
func (r *Rolling) Append(f Fragment) {
	if f.Header != nil {
		r.header = f.Header
	}
	r.frags = append(r.frags, f)

	cutoff := r.now().Add(-r.window)
	n := 0
	for n < len(r.frags) && r.frags[n].CapturedAt.Before(cutoff) {
		r.frags[n] = Fragment{} // release payload
		n++
	}
	if n > 0 {
		r.frags = r.frags[n:]
	}
}

// Snapshot returns the retained fragments in order without mutating the buffer.
// An empty result means there is nothing to play.
func (r *Rolling) Snapshot() []Fragment {
	out := make([]Fragment, len(r.frags))
	copy(out, r.frags)
	return out
}

// Header returns the most recent container header seen, or nil.
func (r *Rolling) Header() []byte { return r.header }

// Clear empties the buffer and forgets the header.
func (r *Rolling) Clear() {
	clear(r.frags)
	r.frags = nil
	r.header = nil
}

// Len returns the number of retained fragments.
func (r *Rolling) Len() int { return len(r.frags) }

// Span returns the capture times of the oldest and newest retained fragments.
func (r *Rolling) Span() (oldest, newest time.Time, ok bool) {
	if len(r.frags) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return r.frags[0].CapturedAt, r.frags[len(r.frags)-1].CapturedAt, true
}

// Bytes returns the total payload size of retained fragments.
func (r *Rolling) Bytes() int {
	total := 0
	for _, f := range r.frags {
		total += len(f.Payload)
	}
	return total
}
