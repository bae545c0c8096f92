package screen

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/replay/internal/errors"
)

// Kind selects what kind of source to enumerate.
type Kind string

const KindScreen Kind = "screen"

// Source is one capturable screen.
type Source struct {
	ID     string
	Name   string
	Index  int
	Bounds image.Rectangle
}

// Stream is a live encoded capture. Close stops the capture process.
type Stream interface {
	io.ReadCloser
	MimeType() string
}

// Options configures the ffmpeg invocation.
type Options struct {
	FFmpegPath string
	Framerate  int
	Bitrate    string
	X11Display string
}

func (o Options) withDefaults() Options {
	if o.FFmpegPath == "" {
		o.FFmpegPath = DefaultFFmpegPath
	}
	if o.Framerate <= 0 {
		o.Framerate = DefaultFramerate
	}
	if o.Bitrate == "" {
		o.Bitrate = DefaultBitrate
	}
	return o
}

// platform implements OS-specific enumeration and grab input.
type platform interface {
	enumerate(ctx context.Context, b *Backend) ([]Source, error)
	inputArgs(src Source, opts Options) []string
}

// Backend enumerates screens and opens ffmpeg capture streams.
type Backend struct {
	opts     Options
	platform platform

	lookPath func(string) (string, error)
	output   func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
	command  func(name string, args ...string) *exec.Cmd
}

// New creates a backend for the current OS.
func New(opts Options) *Backend {
	return &Backend{
		opts:     opts.withDefaults(),
		platform: newPlatform(),
		lookPath: exec.LookPath,
		output:   combinedOutput,
		command:  exec.Command,
	}
}

func combinedOutput(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}
	return cmd.CombinedOutput()
}

// Sources lists capturable screens. An empty list is not an error here; the
// capture session decides what an empty list means.
func (b *Backend) Sources(ctx context.Context, kind Kind) ([]Source, error) {
	if kind != KindScreen {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unsupported source kind %q", kind)
	}
	if b.platform == nil {
		return nil, apperrors.New(apperrors.CodeCaptureUnavailable, "screen capture not supported on this platform")
	}
	if err := b.require(b.opts.FFmpegPath); err != nil {
		return nil, err
	}
	return b.platform.enumerate(ctx, b)
}

// require checks that an external tool is installed.
func (b *Backend) require(tool string) error {
	if _, err := b.lookPath(tool); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeCaptureUnavailable, "%s not found", tool).
			WithMetadata("tool", tool)
	}
	return nil
}

// Open starts grabbing src and waits for the first encoded bytes.
func (b *Backend) Open(ctx context.Context, src Source) (Stream, error) {
	if b.platform == nil {
		return nil, apperrors.New(apperrors.CodeCaptureUnavailable, "screen capture not supported on this platform")
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, b.platform.inputArgs(src, b.opts)...)
	args = append(args, encodeArgs(b.opts)...)

	cmd := b.command(b.opts.FFmpegPath, args...)
	stderr := &tailBuffer{max: StderrTailSize}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStreamAcquisition, "create ffmpeg pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStreamAcquisition, "start ffmpeg").
			WithMetadata("source", src.ID)
	}

	s := &procStream{cmd: cmd, out: bufio.NewReaderSize(stdout, 64<<10)}

	ready := make(chan error, 1)
	go func() {
		_, err := s.out.Peek(1)
		ready <- err
	}()

	timer := time.NewTimer(AcquireTimeout)
	defer timer.Stop()

	select {
	case err := <-ready:
		if err == nil {
			return s, nil
		}
		_ = s.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeStreamAcquisition, "capture rejected").
			WithMetadata("source", src.ID).
			WithMetadata("stderr", stderr.String())
	case <-timer.C:
		_ = s.Close()
		return nil, apperrors.New(apperrors.CodeStreamAcquisition, "capture produced no data").
			WithMetadata("source", src.ID).
			WithMetadata("timeout", AcquireTimeout.String())
	case <-ctx.Done():
		_ = s.Close()
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "open cancelled")
	}
}

// encodeArgs produces a live VP9 WebM on stdout with one keyframe and one
// cluster per second, so every cluster is independently decodable.
func encodeArgs(o Options) []string {
	gop := strconv.Itoa(o.Framerate)
	return []string{
		"-an",
		"-pix_fmt", "yuv420p",
		"-c:v", "libvpx-vp9",
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-row-mt", "1",
		"-b:v", o.Bitrate,
		"-g", gop,
		"-keyint_min", gop,
		"-force_key_frames", "expr:gte(t,n_forced*1)",
		"-cluster_time_limit", strconv.Itoa(ClusterMillis),
		"-f", "webm",
		"pipe:1",
	}
}

type procStream struct {
	cmd *exec.Cmd
	out *bufio.Reader

	closeOnce sync.Once
	closeErr  error
}

func (s *procStream) Read(p []byte) (int, error) { return s.out.Read(p) }

func (s *procStream) MimeType() string { return MimeType }

// Close kills ffmpeg and reaps it. Safe to call more than once.
func (s *procStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		// a killed process always reports a non-zero exit
		var exitErr *exec.ExitError
		if err := s.cmd.Wait(); err != nil && !stderrors.As(err, &exitErr) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf.Bytes()))
}
