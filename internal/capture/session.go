// Package capture owns the live capture stream and the recorder bound to it.
// A Session is created fresh on every start and never reused.
package capture

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/replay/internal/buffer"
	apperrors "github.com/GriffinCanCode/replay/internal/errors"
	"github.com/GriffinCanCode/replay/internal/recorder"
	"github.com/GriffinCanCode/replay/internal/screen"
	"github.com/GriffinCanCode/replay/internal/trace"
)

// Backend enumerates capture sources and opens streams on them.
type Backend interface {
	Sources(ctx context.Context, kind screen.Kind) ([]screen.Source, error)
	Open(ctx context.Context, src screen.Source) (screen.Stream, error)
}

// Recording is a running recorder bound to one stream.
type Recording interface {
	Fragments() <-chan buffer.Fragment
	Stop() error
	Err() error
}

// RecorderFactory binds a recorder to an opened stream.
type RecorderFactory func(stream io.ReadCloser, opts recorder.Options) Recording

func startRecorder(stream io.ReadCloser, opts recorder.Options) Recording {
	return recorder.Start(stream, opts)
}

// Sink receives every non-empty fragment a session emits. It must return
// promptly once ctx is cancelled.
type Sink func(ctx context.Context, sessionID string, f buffer.Fragment)

// Starter creates capture sessions.
type Starter struct {
	Backend     Backend
	NewRecorder RecorderFactory
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewStarter creates a Starter over backend with the real recorder.
func NewStarter(backend Backend) *Starter {
	return &Starter{Backend: backend}
}

// Session is one active capture.
type Session struct {
	id       string
	source   screen.Source
	mimeType string

	rec    Recording
	cancel context.CancelFunc
	done   chan struct{}
	log    *slog.Logger

	stopOnce sync.Once
}

// Start selects a screen, opens a stream on it and begins emitting fragments
// to sink. Errors are AppErrors with NO_CAPTURE_SOURCE, CAPTURE_UNAVAILABLE
// or STREAM_ACQUISITION codes.
func (s *Starter) Start(ctx context.Context, sink Sink) (*Session, error) {
	if s.Backend == nil {
		return nil, apperrors.New(apperrors.CodeCaptureUnavailable, "no capture backend")
	}
	ctx, span := trace.StartSpan(ctx, "capture.start")
	defer func() {
		span.End()
		trace.Logger(ctx).Debug("capture start finished", "span", span)
	}()

	sources, err := s.Backend.Sources(ctx, screen.KindScreen)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeCaptureUnavailable) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureUnavailable, "enumerate sources")
	}
	if len(sources) == 0 {
		return nil, apperrors.New(apperrors.CodeNoCaptureSource, "no capturable screen found")
	}
	src := sources[0]
	span.SetAttr("source", src.ID)

	stream, err := s.Backend.Open(ctx, src)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeStreamAcquisition) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStreamAcquisition, "open stream").
			WithMetadata("source", src.ID)
	}

	id := uuid.NewString()
	log := s.logger().With("session_id", id, "source", src.ID)

	newRec := s.NewRecorder
	if newRec == nil {
		newRec = startRecorder
	}
	rec := newRec(stream, recorder.Options{
		Interval: EmissionInterval,
		Now:      s.Now,
		Logger:   log,
	})

	// the session outlives the start call, so it gets its own cancellation
	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &Session{
		id:       id,
		source:   src,
		mimeType: stream.MimeType(),
		rec:      rec,
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      log,
	}
	go sess.pump(pumpCtx, sink)

	log.Info("capture session started", "name", src.Name, "mime_type", sess.mimeType)
	return sess, nil
}

func (s *Starter) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Session) pump(ctx context.Context, sink Sink) {
	defer close(s.done)
	for f := range s.rec.Fragments() {
		if len(f.Payload) == 0 {
			continue
		}
		sink(ctx, s.id, f)
	}
}

// ID identifies the session in logs and status.
func (s *Session) ID() string { return s.id }

// Source is the screen being captured.
func (s *Session) Source() screen.Source { return s.source }

// MimeType is the container and codec of emitted fragments.
func (s *Session) MimeType() string { return s.mimeType }

// Done closes once the session stops emitting, either because Stop was
// called or because the stream ended on its own.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the stream ended when it ended on its own.
func (s *Session) Err() error { return s.rec.Err() }

// Stop halts the recorder, releases the stream and waits until no further
// fragment can reach the sink. Safe on a nil or already stopped session.
func (s *Session) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.rec.Stop(); err != nil {
			s.log.Debug("release capture stream", "error", err)
		}
		<-s.done
		s.log.Info("capture session stopped")
	})
}
