package display

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/replay/internal/capture"
	apperrors "github.com/GriffinCanCode/replay/internal/errors"
	"github.com/GriffinCanCode/replay/internal/playback"
	"github.com/GriffinCanCode/replay/internal/replay"
	"github.com/GriffinCanCode/replay/internal/trace"
)

//go:embed index.html
var indexHTML []byte

// Message types pushed over the websocket and returned by the API.
type PlaybackMessage struct {
	Type       string `json:"type"`
	AssetID    string `json:"asset_id"`
	URL        string `json:"url"`
	MimeType   string `json:"mime_type"`
	Fragments  int    `json:"fragments"`
	DurationMS int64  `json:"duration_ms"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Controller is the part of the replay controller the surface drives.
type Controller interface {
	Status() replay.Status
	Resume()
	Restart()
}

// rateLimiter tracks request timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
	now        func() time.Time
}

// allow checks if a request is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-ControlRateWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= ControlRateLimit {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles the page, its WebSocket and the control API.
type Server struct {
	mu      sync.RWMutex
	conns   map[*websocket.Conn]struct{}
	current *playback.Asset
	ctrl    Controller
	limiter *rateLimiter
}

// New creates a display server. Bind a controller before serving control
// endpoints.
func New() *Server {
	return &Server{
		conns:   make(map[*websocket.Conn]struct{}),
		limiter: &rateLimiter{now: time.Now},
	}
}

// Bind attaches the controller the control endpoints act on.
func (s *Server) Bind(c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = c
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET "+PlaybackPath, s.handlePlayback)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/resume", s.handleResume)
	mux.HandleFunc("POST /api/restart", s.handleRestart)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Present stores a as the current asset and pushes it to every open page,
// replacing whatever they were showing.
func (s *Server) Present(ctx context.Context, a *playback.Asset) error {
	if a == nil {
		return apperrors.New(apperrors.CodeInvalidArgument, "nil asset")
	}
	s.mu.Lock()
	s.current = a
	s.mu.Unlock()

	msg := playbackMessage(a)
	n := s.broadcast(msg)
	trace.Logger(ctx).Info("playback pushed", "asset_id", a.ID, "bytes", len(a.Data), "viewers", n)
	return nil
}

// Report pushes an error to every open page.
func (s *Server) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	msg := ErrorMessage{Type: "error", Code: apperrors.CodeOf(err).String(), Message: err.Error()}
	if ae, ok := apperrors.As(err); ok {
		msg.Message = ae.Message
	}
	s.broadcast(msg)
	trace.Logger(ctx).Debug("error pushed", "code", msg.Code)
}

func playbackMessage(a *playback.Asset) PlaybackMessage {
	return PlaybackMessage{
		Type:       "playback",
		AssetID:    a.ID,
		URL:        PlaybackPath + "?id=" + a.ID,
		MimeType:   a.MimeType,
		Fragments:  a.Fragments,
		DurationMS: a.Duration(capture.EmissionInterval).Milliseconds(),
	}
}

// broadcast writes msg to every connection and returns how many there were.
func (s *Server) broadcast(msg any) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			defer cancel()
			if err := wsjson.Write(ctx, c, msg); err != nil {
				slog.Debug("websocket write error", "error", err)
			}
		}(conn)
	}
	return len(s.conns)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	log := trace.Logger(r.Context())
	log.Info("websocket connected", "remote", r.RemoteAddr)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	current := s.current
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	// a page opened after playback started still gets the latest asset
	if current != nil {
		ctx, cancel := context.WithTimeout(r.Context(), WriteTimeout)
		err := wsjson.Write(ctx, conn, playbackMessage(current))
		cancel()
		if err != nil {
			log.Debug("websocket write error", "error", err)
			return
		}
	}

	// the page never sends anything; reading only detects the close
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
	log.Debug("websocket closed", "remote", r.RemoteAddr)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	a := s.current
	s.mu.RUnlock()

	if a == nil {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "nothing has been played yet"))
		return
	}
	if id := r.URL.Query().Get("id"); id != "" && id != a.ID {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "asset replaced").WithMetadata("asset_id", id))
		return
	}

	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Cache-Control", "no-store")
	// ServeContent answers range requests, which is what makes seeking work
	http.ServeContent(w, r, "replay.webm", a.To, bytes.NewReader(a.Data))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	ctrl, ok := s.controller(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Status())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controlRequest(w)
	if !ok {
		return
	}
	trace.Logger(r.Context()).Info("resume requested over http", "remote", r.RemoteAddr)
	ctrl.Resume()
	writeJSON(w, http.StatusAccepted, StatusMessage{Type: "status", Status: "resume_requested"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controlRequest(w)
	if !ok {
		return
	}
	trace.Logger(r.Context()).Info("restart requested over http", "remote", r.RemoteAddr)
	ctrl.Restart()
	writeJSON(w, http.StatusAccepted, StatusMessage{Type: "status", Status: "restart_requested"})
}

func (s *Server) controlRequest(w http.ResponseWriter) (Controller, bool) {
	ctrl, ok := s.controller(w)
	if !ok {
		return nil, false
	}
	if !s.limiter.allow() {
		w.Header().Set("Retry-After", "10")
		writeJSON(w, http.StatusTooManyRequests, ErrorMessage{
			Type:    "error",
			Code:    apperrors.CodeUnavailable.String(),
			Message: "rate limit exceeded",
		})
		return nil, false
	}
	return ctrl, true
}

func (s *Server) controller(w http.ResponseWriter) (Controller, bool) {
	s.mu.RLock()
	ctrl := s.ctrl
	s.mu.RUnlock()
	if ctrl == nil {
		writeError(w, apperrors.New(apperrors.CodeUnavailable, "controller not running"))
		return nil, false
	}
	return ctrl, true
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	writeJSON(w, err.HTTPStatus(), ErrorMessage{Type: "error", Code: err.Code.String(), Message: err.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
