package webm

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func idBytes(id uint32) []byte {
	switch {
	case id > 0xFFFFFF:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	case id > 0xFFFF:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	case id > 0xFF:
		return []byte{byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id)}
	}
}

// sizeBytes encodes n using width bytes.
func sizeBytes(n, width int) []byte {
	out := make([]byte, width)
	v := uint64(n)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	out[0] |= 0x80 >> (width - 1)
	return out
}

func element(id uint32, width int, body []byte) []byte {
	out := append(idBytes(id), sizeBytes(len(body), width)...)
	return append(out, body...)
}

// Segment children the reader passes through untouched.
const (
	idInfo uint32 = 0x1549A966
	idCues uint32 = 0x1C53BB6B
	idVoid uint32 = 0xEC
)

var unknownSize = []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

type liveStream struct {
	header   []byte
	clusters [][]byte
	all      []byte
}

func buildStream() liveStream {
	var s liveStream
	s.header = append(s.header, element(IDEBML, 1, []byte{0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'})...)
	s.header = append(s.header, idBytes(IDSegment)...)
	s.header = append(s.header, unknownSize...)
	s.header = append(s.header, element(idInfo, 2, []byte("info"))...)
	s.header = append(s.header, element(IDTracks, 1, []byte("tracks-vp9"))...)

	s.all = append(s.all, s.header...)
	for i, n := range []int{3, 200, 40000} {
		body := bytes.Repeat([]byte{byte(i + 1)}, n)
		width := 4
		if n < 100 {
			width = 1
		}
		c := element(IDCluster, width, body)
		s.clusters = append(s.clusters, c)
		s.all = append(s.all, c...)
		if i == 1 {
			s.all = append(s.all, element(idVoid, 1, []byte{0, 0})...)
		}
	}
	s.all = append(s.all, element(idCues, 1, []byte("cues"))...)
	return s
}

func TestReaderSplitsHeaderAndClusters(t *testing.T) {
	s := buildStream()
	r := NewReader(bytes.NewReader(s.all))

	hdr, err := r.Header()
	if err != nil {
		t.Fatalf("Header() error: %v", err)
	}
	if !bytes.Equal(hdr, s.header) {
		t.Errorf("Header() = %d bytes, want %d", len(hdr), len(s.header))
	}

	for i, want := range s.clusters {
		got, err := r.NextCluster()
		if err != nil {
			t.Fatalf("NextCluster() #%d error: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("cluster #%d = %d bytes, want %d", i, len(got), len(want))
		}
	}

	if _, err := r.NextCluster(); !errors.Is(err, io.EOF) {
		t.Errorf("NextCluster() at end = %v, want io.EOF", err)
	}
}

func TestReaderRejectsNonWebM(t *testing.T) {
	r := NewReader(bytes.NewReader(element(IDCluster, 1, []byte("x"))))
	if _, err := r.Header(); err == nil {
		t.Error("Header() should fail when the stream does not start with EBML")
	}
}

func TestReaderRequiresTracks(t *testing.T) {
	var stream []byte
	stream = append(stream, element(IDEBML, 1, []byte{0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'})...)
	stream = append(stream, idBytes(IDSegment)...)
	stream = append(stream, unknownSize...)
	stream = append(stream, element(idInfo, 2, []byte("info"))...)
	stream = append(stream, element(IDCluster, 1, []byte("x"))...)

	r := NewReader(bytes.NewReader(stream))
	if _, err := r.Header(); !errors.Is(err, ErrNoTracks) {
		t.Errorf("Header() = %v, want ErrNoTracks", err)
	}
}

func TestReaderRequiresHeader(t *testing.T) {
	r := NewReader(bytes.NewReader(buildStream().all))
	if _, err := r.NextCluster(); !errors.Is(err, ErrHeaderNotRead) {
		t.Errorf("NextCluster() = %v, want ErrHeaderNotRead", err)
	}
}

func TestReaderUnknownSizeCluster(t *testing.T) {
	s := buildStream()
	stream := append([]byte{}, s.header...)
	stream = append(stream, idBytes(IDCluster)...)
	stream = append(stream, unknownSize...)

	r := NewReader(bytes.NewReader(stream))
	if _, err := r.Header(); err != nil {
		t.Fatalf("Header() error: %v", err)
	}
	if _, err := r.NextCluster(); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("NextCluster() = %v, want ErrUnknownSize", err)
	}
}

func TestReaderTruncatedCluster(t *testing.T) {
	s := buildStream()
	stream := append([]byte{}, s.header...)
	stream = append(stream, s.clusters[2][:100]...)

	r := NewReader(bytes.NewReader(stream))
	if _, err := r.Header(); err != nil {
		t.Fatalf("Header() error: %v", err)
	}
	if _, err := r.NextCluster(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("NextCluster() = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadVint(t *testing.T) {
	tests := []struct {
		name  string
		in    []byte
		max   int
		keep  bool
		want  uint64
		width int
	}{
		{"one byte size", []byte{0x85}, 8, false, 5, 1},
		{"two byte size", []byte{0x40, 0x02}, 8, false, 2, 2},
		{"four byte id", []byte{0x1A, 0x45, 0xDF, 0xA3}, 4, true, 0x1A45DFA3, 4},
		{"one byte id", []byte{0xEC}, 4, true, 0xEC, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bytes.NewReader(tt.in))
			got, raw, err := r.readVint(tt.max, tt.keep)
			if err != nil {
				t.Fatalf("readVint error: %v", err)
			}
			if got != tt.want || len(raw) != tt.width {
				t.Errorf("readVint = %#x (%d bytes), want %#x (%d bytes)", got, len(raw), tt.want, tt.width)
			}
		})
	}
}

func TestReadVintInvalid(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x00, 0x01}))
	if _, _, err := r.readVint(8, false); !errors.Is(err, ErrInvalidVint) {
		t.Errorf("readVint = %v, want ErrInvalidVint", err)
	}

	r = NewReader(bytes.NewReader([]byte{0x08, 0, 0, 0, 0}))
	if _, _, err := r.readVint(4, true); !errors.Is(err, ErrInvalidVint) {
		t.Errorf("5-byte id = %v, want ErrInvalidVint", err)
	}
}
