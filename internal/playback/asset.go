// Package playback builds the one-shot asset shown after a resume.
package playback

import (
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/replay/internal/buffer"
)

// Asset is a single playable media object built from buffered fragments.
// It is derived on demand and never mutated.
type Asset struct {
	ID        string
	MimeType  string
	Data      []byte
	Fragments int
	From      time.Time
	To        time.Time
}

// Build concatenates header and the fragment payloads in order. It returns
// nil when frags is empty: there is nothing to play.
func Build(mimeType string, header []byte, frags []buffer.Fragment) *Asset {
	if len(frags) == 0 {
		return nil
	}
	size := len(header)
	for _, f := range frags {
		size += len(f.Payload)
	}
	data := make([]byte, 0, size)
	data = append(data, header...)
	for _, f := range frags {
		data = append(data, f.Payload...)
	}
	return &Asset{
		ID:        uuid.NewString(),
		MimeType:  mimeType,
		Data:      data,
		Fragments: len(frags),
		From:      frags[0].CapturedAt,
		To:        frags[len(frags)-1].CapturedAt,
	}
}

// Duration approximates the covered span. Each fragment ends one emission
// interval after its timestamp.
func (a *Asset) Duration(interval time.Duration) time.Duration {
	if a == nil {
		return 0
	}
	return a.To.Sub(a.From) + interval
}
