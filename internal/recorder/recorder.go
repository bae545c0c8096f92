// Package recorder turns a live WebM stream into periodic buffer fragments.
package recorder

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/GriffinCanCode/replay/internal/buffer"
	"github.com/GriffinCanCode/replay/internal/webm"
)

// DefaultInterval is the fragment emission period.
const DefaultInterval = time.Second

// Options configures a Recorder.
type Options struct {
	Interval time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// Recorder reads whole clusters from a stream and emits whatever complete
// clusters arrived during each interval as one fragment.
type Recorder struct {
	stream   io.ReadCloser
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger

	out      chan buffer.Fragment
	readDone chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	stopErr  error
	wg       sync.WaitGroup

	mu         sync.Mutex
	header     []byte
	headerSent bool
	pending    []byte
	readErr    error
	stopped    bool
}

// Start begins reading stream and emitting fragments.
func Start(stream io.ReadCloser, opts Options) *Recorder {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Recorder{
		stream:   stream,
		interval: opts.Interval,
		now:      opts.Now,
		log:      opts.Logger,
		out:      make(chan buffer.Fragment, 4),
		readDone: make(chan struct{}),
		stopCh:   make(chan struct{}),
	}
	r.wg.Add(2)
	go r.readLoop()
	go r.emitLoop()
	return r
}

// Fragments delivers one fragment per interval that produced data. The
// channel closes when the stream ends or Stop is called.
func (r *Recorder) Fragments() <-chan buffer.Fragment { return r.out }

// Err returns the error that ended the stream, if any. A clean end of
// stream or a Stop is not an error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

// Stop halts emission and closes the stream. Idempotent.
func (r *Recorder) Stop() error {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.stopCh)
		r.stopErr = r.stream.Close()
		r.wg.Wait()
	})
	return r.stopErr
}

func (r *Recorder) readLoop() {
	defer r.wg.Done()
	defer close(r.readDone)

	wr := webm.NewReader(r.stream)
	hdr, err := wr.Header()
	if err != nil {
		r.fail(err)
		return
	}
	r.mu.Lock()
	r.header = hdr
	r.mu.Unlock()

	for {
		cluster, err := wr.NextCluster()
		if err != nil {
			r.fail(err)
			return
		}
		r.mu.Lock()
		r.pending = append(r.pending, cluster...)
		r.mu.Unlock()
	}
}

func (r *Recorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || errors.Is(err, io.EOF) {
		return
	}
	r.readErr = err
	r.log.Warn("capture stream ended", "error", err)
}

func (r *Recorder) emitLoop() {
	defer r.wg.Done()
	defer close(r.out)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.flush()
		case <-r.readDone:
			r.flush()
			return
		}
	}
}

// flush emits everything accumulated since the last flush. Empty intervals
// emit nothing.
func (r *Recorder) flush() {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return
	}
	f := buffer.Fragment{CapturedAt: r.now(), Payload: r.pending}
	r.pending = nil
	if !r.headerSent {
		f.Header = r.header
		r.headerSent = true
	}
	r.mu.Unlock()

	select {
	case r.out <- f:
	case <-r.stopCh:
	}
}
