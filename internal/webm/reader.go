// Package webm splits a live WebM byte stream into its container header and
// its clusters, so any suffix of clusters can be replayed behind the header.
package webm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Element ids the reader acts on.
const (
	IDEBML    uint32 = 0x1A45DFA3
	IDSegment uint32 = 0x18538067
	IDTracks  uint32 = 0x1654AE6B
	IDCluster uint32 = 0x1F43B675
)

// MaxElementSize bounds a single buffered element.
const MaxElementSize = 64 << 20

var (
	ErrUnknownSize     = errors.New("webm: element of unknown size")
	ErrElementTooLarge = errors.New("webm: element exceeds size limit")
	ErrInvalidVint     = errors.New("webm: invalid variable-length integer")
	ErrHeaderNotRead   = errors.New("webm: header must be read before clusters")
	ErrNoTracks        = errors.New("webm: header has no Tracks element")
)

type elementHead struct {
	id      uint32
	size    int64
	unknown bool
	raw     []byte // id and size bytes as read
}

// Reader walks the top level of a single WebM Segment.
type Reader struct {
	r       *bufio.Reader
	pending *elementHead
	header  bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64<<10)}
}

// Header reads the EBML header, the Segment start and every Segment child up
// to the first Cluster, and returns their raw bytes. A header without Tracks
// cannot be decoded and is rejected.
func (r *Reader) Header() ([]byte, error) {
	ebml, err := r.readHead()
	if err != nil {
		return nil, err
	}
	if ebml.id != IDEBML {
		return nil, fmt.Errorf("webm: expected EBML header, got element 0x%X", ebml.id)
	}
	out, err := r.readBody(ebml)
	if err != nil {
		return nil, err
	}

	seg, err := r.readHead()
	if err != nil {
		return nil, err
	}
	if seg.id != IDSegment {
		return nil, fmt.Errorf("webm: expected Segment, got element 0x%X", seg.id)
	}
	out = append(out, seg.raw...)

	tracks := false
	for {
		h, err := r.readHead()
		if err != nil {
			return nil, err
		}
		if h.id == IDCluster {
			if !tracks {
				return nil, ErrNoTracks
			}
			r.pending = h
			r.header = true
			return out, nil
		}
		el, err := r.readBody(h)
		if err != nil {
			return nil, err
		}
		tracks = tracks || h.id == IDTracks
		out = append(out, el...)
	}
}

// NextCluster returns the raw bytes of the next Cluster, skipping any other
// top-level element. It returns io.EOF at a clean end of stream.
func (r *Reader) NextCluster() ([]byte, error) {
	if !r.header {
		return nil, ErrHeaderNotRead
	}
	for {
		h := r.pending
		r.pending = nil
		if h == nil {
			var err error
			if h, err = r.readHead(); err != nil {
				return nil, err
			}
		}
		el, err := r.readBody(h)
		if err != nil {
			return nil, err
		}
		if h.id == IDCluster {
			return el, nil
		}
	}
}

func (r *Reader) readHead() (*elementHead, error) {
	id, idRaw, err := r.readVint(4, true)
	if err != nil {
		return nil, err
	}
	size, sizeRaw, err := r.readVint(8, false)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	h := &elementHead{
		id:   uint32(id),
		size: int64(size),
		raw:  append(idRaw, sizeRaw...),
	}
	// all value bits set marks an unknown size
	if size == (uint64(1)<<(7*len(sizeRaw)))-1 {
		h.unknown = true
		h.size = -1
	}
	return h, nil
}

// readBody returns head bytes followed by the element body.
func (r *Reader) readBody(h *elementHead) ([]byte, error) {
	if h.unknown {
		return nil, fmt.Errorf("%w: 0x%X", ErrUnknownSize, h.id)
	}
	if h.size > MaxElementSize {
		return nil, fmt.Errorf("%w: 0x%X is %d bytes", ErrElementTooLarge, h.id, h.size)
	}
	out := make([]byte, len(h.raw)+int(h.size))
	copy(out, h.raw)
	if _, err := io.ReadFull(r.r, out[len(h.raw):]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return out, nil
}

// readVint reads an EBML variable-length integer of at most maxLen bytes.
// Ids keep their length marker; sizes have it stripped.
func (r *Reader) readVint(maxLen int, keepMarker bool) (uint64, []byte, error) {
	first, err := r.r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	length := 1
	for mask := byte(0x80); length <= 8 && first&mask == 0; mask >>= 1 {
		length++
	}
	if length > maxLen {
		return 0, nil, ErrInvalidVint
	}

	raw := make([]byte, length)
	raw[0] = first
	if _, err := io.ReadFull(r.r, raw[1:]); err != nil {
		return 0, nil, io.ErrUnexpectedEOF
	}

	val := uint64(first)
	if !keepMarker {
		val &= uint64(0xFF >> length)
	}
	for _, b := range raw[1:] {
		val = val<<8 | uint64(b)
	}
	return val, raw, nil
}
