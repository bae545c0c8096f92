package recorder

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/GriffinCanCode/replay/internal/buffer"
)

// element encodes an EBML element with a 4-byte id and a 4-byte size.
func element(id uint32, body []byte) []byte {
	n := len(body)
	out := []byte{
		byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id),
		0x10 | byte(n>>24), byte(n >> 16), byte(n >> 8), byte(n),
	}
	return append(out, body...)
}

func testHeader() []byte {
	h := element(0x1A45DFA3, []byte("ebml"))
	h = append(h, 0x18, 0x53, 0x80, 0x67, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	return append(h, element(0x1654AE6B, []byte("tracks"))...)
}

func testCluster(i int) []byte {
	return element(0x1F43B675, bytes.Repeat([]byte{byte(i)}, 32+i))
}

func collect(t *testing.T, r *Recorder) []buffer.Fragment {
	t.Helper()
	var frags []buffer.Fragment
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-r.Fragments():
			if !ok {
				return frags
			}
			frags = append(frags, f)
		case <-timeout:
			t.Fatal("timed out waiting for fragments channel to close")
		}
	}
}

func TestRecorderEmitsClustersBehindHeader(t *testing.T) {
	var stream []byte
	var clusters []byte
	stream = append(stream, testHeader()...)
	for i := 0; i < 5; i++ {
		c := testCluster(i)
		stream = append(stream, c...)
		clusters = append(clusters, c...)
	}

	r := Start(io.NopCloser(bytes.NewReader(stream)), Options{Interval: 10 * time.Millisecond})
	frags := collect(t, r)

	if len(frags) == 0 {
		t.Fatal("no fragments emitted")
	}
	if !bytes.Equal(frags[0].Header, testHeader()) {
		t.Errorf("first fragment header = %q, want container header", frags[0].Header)
	}
	var payload []byte
	for i, f := range frags {
		if len(f.Payload) == 0 {
			t.Errorf("fragment %d is empty", i)
		}
		if i > 0 && f.Header != nil {
			t.Errorf("fragment %d carries a header", i)
		}
		if f.CapturedAt.IsZero() {
			t.Errorf("fragment %d has no timestamp", i)
		}
		payload = append(payload, f.Payload...)
	}
	if !bytes.Equal(payload, clusters) {
		t.Errorf("payloads = %d bytes, want %d bytes of clusters", len(payload), len(clusters))
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v after clean EOF", err)
	}
}

func TestRecorderStopWhileLive(t *testing.T) {
	pr, pw := io.Pipe()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	r := Start(pr, Options{Interval: 20 * time.Millisecond, Now: func() time.Time { return now }})

	if _, err := pw.Write(testHeader()); err != nil {
		t.Fatal(err)
	}
	if _, err := pw.Write(testCluster(1)); err != nil {
		t.Fatal(err)
	}

	select {
	case f := <-r.Fragments():
		want := testCluster(1)
		if !bytes.Equal(f.Payload, want) {
			t.Errorf("payload = %d bytes, want %d", len(f.Payload), len(want))
		}
		if !f.CapturedAt.Equal(now) {
			t.Errorf("CapturedAt = %v, want %v", f.CapturedAt, now)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no fragment emitted")
	}

	if err := r.Stop(); err != nil {
		t.Errorf("Stop() = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
	if _, ok := <-r.Fragments(); ok {
		t.Error("fragments channel should be closed after Stop")
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, stop is not a stream failure", r.Err())
	}
}

func TestRecorderInvalidStream(t *testing.T) {
	r := Start(io.NopCloser(bytes.NewReader([]byte("not a webm stream"))), Options{Interval: 10 * time.Millisecond})
	frags := collect(t, r)

	if len(frags) != 0 {
		t.Errorf("emitted %d fragments from garbage", len(frags))
	}
	if r.Err() == nil {
		t.Error("Err() should report the parse failure")
	}
}

func TestRecorderTruncatedStream(t *testing.T) {
	stream := append(testHeader(), testCluster(1)...)
	stream = append(stream, testCluster(2)[:10]...)

	r := Start(io.NopCloser(bytes.NewReader(stream)), Options{Interval: 10 * time.Millisecond})
	frags := collect(t, r)

	if len(frags) != 1 || !bytes.Equal(frags[0].Payload, testCluster(1)) {
		t.Errorf("fragments = %d, want the one complete cluster", len(frags))
	}
	if !errors.Is(r.Err(), io.ErrUnexpectedEOF) {
		t.Errorf("Err() = %v, want io.ErrUnexpectedEOF", r.Err())
	}
}
