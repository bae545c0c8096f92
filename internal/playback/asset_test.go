package playback

import (
	"testing"
	"time"

	"github.com/GriffinCanCode/replay/internal/buffer"
)

const mime = "video/webm; codecs=vp9"

func TestBuildEmpty(t *testing.T) {
	if a := Build(mime, []byte("hdr"), nil); a != nil {
		t.Errorf("Build(nil) = %+v, want nil", a)
	}
	var a *Asset
	if d := a.Duration(time.Second); d != 0 {
		t.Errorf("nil Duration = %v", d)
	}
}

func TestBuildConcatenatesInOrder(t *testing.T) {
	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	frags := []buffer.Fragment{
		{CapturedAt: base, Payload: []byte("one,")},
		{CapturedAt: base.Add(time.Second), Payload: []byte("two,")},
		{CapturedAt: base.Add(2 * time.Second), Payload: []byte("three")},
	}

	a := Build(mime, []byte("hdr:"), frags)
	if a == nil {
		t.Fatal("Build returned nil")
	}
	if got := string(a.Data); got != "hdr:one,two,three" {
		t.Errorf("Data = %q", got)
	}
	if a.Fragments != 3 {
		t.Errorf("Fragments = %d, want 3", a.Fragments)
	}
	if a.MimeType != mime {
		t.Errorf("MimeType = %q", a.MimeType)
	}
	if !a.From.Equal(base) || !a.To.Equal(base.Add(2*time.Second)) {
		t.Errorf("span = %v..%v", a.From, a.To)
	}
	if d := a.Duration(time.Second); d != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", d)
	}
	if a.ID == "" {
		t.Error("asset has no id")
	}
}

func TestBuildDoesNotAliasPayloads(t *testing.T) {
	payload := []byte("abc")
	a := Build(mime, nil, []buffer.Fragment{{CapturedAt: time.Now(), Payload: payload}})
	a.Data[0] = 'z'
	if string(payload) != "abc" {
		t.Errorf("fragment payload mutated to %q", payload)
	}
}

func TestBuildUniqueIDs(t *testing.T) {
	frags := []buffer.Fragment{{CapturedAt: time.Now(), Payload: []byte("x")}}
	if Build(mime, nil, frags).ID == Build(mime, nil, frags).ID {
		t.Error("two builds share an id")
	}
}
