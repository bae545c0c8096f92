// Package replay runs the resume playback state machine:
// RECORDING → STOPPING → PLAYING → RESTART_PENDING → RECORDING.
//
// One goroutine (Run) owns the rolling buffer and the capture session.
// Fragments, resume signals, restart triggers and the restart timer all
// arrive as events on that loop, so no state is shared without a channel.
package replay

import (
	"context"
	"log/slog"
	"time"

	"github.com/GriffinCanCode/replay/internal/buffer"
	"github.com/GriffinCanCode/replay/internal/capture"
	apperrors "github.com/GriffinCanCode/replay/internal/errors"
	"github.com/GriffinCanCode/replay/internal/playback"
	"github.com/GriffinCanCode/replay/internal/syncx"
	"github.com/GriffinCanCode/replay/internal/trace"
)

// Session is an active capture as seen by the controller.
type Session interface {
	ID() string
	SourceID() string
	MimeType() string
	Done() <-chan struct{}
	Err() error
	Stop()
}

// Starter opens capture sessions.
type Starter interface {
	Start(ctx context.Context, sink capture.Sink) (Session, error)
}

// Surface displays assets and surfaces errors to the host.
type Surface interface {
	Present(ctx context.Context, a *playback.Asset) error
	Report(ctx context.Context, err error)
}

// Options configures a Controller.
type Options struct {
	Clock        Clock
	Logger       *slog.Logger
	OnTransition func(from, to State)
}

type fragmentEvent struct {
	gen  uint64
	frag buffer.Fragment
}

// Controller is the resume playback state machine.
type Controller struct {
	starter      Starter
	surface      Surface
	clock        Clock
	log          *slog.Logger
	onTransition func(from, to State)

	fragments chan fragmentEvent
	resumes   chan struct{}
	restarts  chan struct{}
	status    *syncx.Value[Status]

	// owned by Run
	buf        *buffer.Rolling
	state      State
	session    Session
	generation uint64
	mimeType   string
	restartC   <-chan time.Time
	lastWake   time.Time
	cycleCtx   context.Context
	cycles     int
	lastAsset  string
	lastErr    string
}

// New creates a controller. Nothing happens until Run.
func New(starter Starter, surface Surface, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Controller{
		starter:      starter,
		surface:      surface,
		clock:        opts.Clock,
		log:          opts.Logger,
		onTransition: opts.OnTransition,
		fragments:    make(chan fragmentEvent, fragmentQueue),
		resumes:      make(chan struct{}, 1),
		restarts:     make(chan struct{}, 1),
		state:        StateIdle,
	}
	c.buf = buffer.New(buffer.RetentionWindow, c.clock.Now)
	c.status = syncx.NewValue(Status{State: StateIdle, UpdatedAt: c.clock.Now()})
	return c
}

// Resume delivers the system-resumed signal. Signals that arrive while one
// is already queued coalesce. Signals outside RECORDING and IDLE, or within
// ResumeSettle of the last accepted one, are ignored. In IDLE a non-empty
// buffer is played before capture restarts.
func (c *Controller) Resume() {
	select {
	case c.resumes <- struct{}{}:
	default:
	}
}

// Restart is the external restart trigger. It only acts when no capture
// stream is active.
func (c *Controller) Restart() {
	select {
	case c.restarts <- struct{}{}:
	default:
	}
}

// Status returns the latest published read model. Safe from any goroutine.
func (c *Controller) Status() Status { return c.status.Load() }

// Run starts capture and processes events until ctx is cancelled. The active
// session is stopped before Run returns.
func (c *Controller) Run(ctx context.Context) {
	c.cycleCtx, _ = trace.NewCycle(ctx)
	c.startCapture(ctx)
	defer c.stopSession()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("replay controller stopping", "state", c.state)
			return

		case ev := <-c.fragments:
			c.handleFragment(ev)

		case <-c.resumes:
			c.handleResume(ctx)

		case <-c.restarts:
			if c.state != StateIdle {
				c.log.Debug("restart ignored", "state", c.state)
				continue
			}
			c.cycleCtx, _ = trace.NewCycle(ctx)
			c.restart(ctx)

		case <-c.restartC:
			c.restartC = nil
			c.restart(ctx)

		case <-c.sessionDone():
			c.handleStreamEnd()
		}
	}
}

func (c *Controller) sessionDone() <-chan struct{} {
	if c.session == nil {
		return nil
	}
	return c.session.Done()
}

func (c *Controller) handleFragment(ev fragmentEvent) {
	// late fragments from a stopped session, or any fragment outside
	// RECORDING, must not reach the buffer
	if ev.gen != c.generation || c.state != StateRecording {
		return
	}
	c.buf.Append(ev.frag)
	c.publish()
}

func (c *Controller) handleResume(ctx context.Context) {
	if c.state != StateRecording && c.state != StateIdle {
		c.log.Debug("resume ignored", "state", c.state)
		return
	}
	now := c.clock.Now()
	if !c.lastWake.IsZero() && now.Sub(c.lastWake) < ResumeSettle {
		c.log.Debug("resume ignored, wake already handled", "since", now.Sub(c.lastWake))
		return
	}
	c.lastWake = now

	c.cycleCtx, _ = trace.NewCycle(ctx)
	log := trace.Logger(c.cycleCtx)

	if c.state == StateRecording {
		log.Info("system resumed", "fragments", c.buf.Len())
		gen := c.generation
		c.transition(StateStopping)
		c.stopSession()
		c.drainFragments(gen)
	} else {
		log.Info("system resumed while idle", "fragments", c.buf.Len())
	}

	frags := c.buf.Snapshot()
	if len(frags) == 0 {
		if c.state == StateIdle {
			c.restart(ctx)
			return
		}
		log.Info("nothing buffered, skipping playback")
		c.scheduleRestart()
		return
	}

	c.transition(StatePlaying)
	c.play(frags)
	c.scheduleRestart()
}

// drainFragments moves fragments of generation gen that were queued before
// the session stopped into the buffer.
func (c *Controller) drainFragments(gen uint64) {
	for {
		select {
		case ev := <-c.fragments:
			if ev.gen == gen {
				c.buf.Append(ev.frag)
			}
		default:
			return
		}
	}
}

func (c *Controller) play(frags []buffer.Fragment) {
	ctx, span := trace.StartSpan(c.cycleCtx, "replay.playback")
	defer func() {
		span.End()
		trace.Logger(ctx).Info("playback presented", "span", span)
	}()

	asset := playback.Build(c.mimeType, c.buf.Header(), frags)
	span.SetAttr("asset_id", asset.ID)
	span.SetAttr("fragments", asset.Fragments)
	span.SetAttr("bytes", len(asset.Data))
	c.lastAsset = asset.ID
	c.cycles++

	if err := c.surface.Present(ctx, asset); err != nil {
		c.fail(ctx, apperrors.Wrap(err, apperrors.CodeUnavailable, "present playback").
			WithMetadata("asset_id", asset.ID))
	}
}

func (c *Controller) scheduleRestart() {
	c.restartC = c.clock.After(RestartDelay)
	c.transition(StateRestartPending)
}

// restart clears the buffer and starts a fresh session.
func (c *Controller) restart(ctx context.Context) {
	c.buf.Clear()
	c.publish()
	c.startCapture(ctx)
}

func (c *Controller) startCapture(ctx context.Context) {
	c.generation++
	gen := c.generation

	sink := func(sctx context.Context, _ string, f buffer.Fragment) {
		select {
		case c.fragments <- fragmentEvent{gen: gen, frag: f}:
		case <-sctx.Done():
		}
	}

	sess, err := c.starter.Start(c.cycleCtx, sink)
	if err != nil {
		c.fail(c.cycleCtx, err)
		c.transition(StateIdle)
		return
	}
	if ctx.Err() != nil {
		sess.Stop()
		return
	}
	c.session = sess
	c.mimeType = sess.MimeType()
	c.lastErr = ""
	c.transition(StateRecording)
}

// handleStreamEnd runs when capture dies on its own. The buffer is left as
// is; it is cleared only on restart.
func (c *Controller) handleStreamEnd() {
	err := c.session.Err()
	c.stopSession()
	if err == nil {
		err = apperrors.New(apperrors.CodeUnavailable, "capture stream closed")
	} else {
		err = apperrors.Wrap(err, apperrors.CodeUnavailable, "capture stream failed")
	}
	c.fail(c.cycleCtx, err)
	c.transition(StateIdle)
}

func (c *Controller) stopSession() {
	if c.session == nil {
		return
	}
	c.session.Stop()
	c.session = nil
	c.generation++
}

func (c *Controller) fail(ctx context.Context, err error) {
	c.lastErr = err.Error()
	trace.Logger(ctx).Error("capture cycle error", "code", apperrors.CodeOf(err).String(), "error", err)
	c.surface.Report(ctx, err)
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	if from != to {
		c.log.Debug("state transition", "from", from, "to", to)
		if c.onTransition != nil {
			c.onTransition(from, to)
		}
	}
	c.publish()
}

func (c *Controller) publish() {
	st := Status{
		State:       c.state,
		Fragments:   c.buf.Len(),
		Bytes:       c.buf.Bytes(),
		LastAssetID: c.lastAsset,
		LastError:   c.lastErr,
		Cycles:      c.cycles,
		UpdatedAt:   c.clock.Now(),
	}
	if c.session != nil {
		st.SessionID = c.session.ID()
		st.Source = c.session.SourceID()
	}
	if oldest, newest, ok := c.buf.Span(); ok {
		st.Oldest, st.Newest = oldest, newest
	}
	c.status.Store(st)
}
