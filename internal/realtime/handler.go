package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/courierlive/internal/metrics"
	"github.com/BearBump/courierlive/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/net/websocket"
)

const (
	maxDecodeErrorsPerConn = 5
	maxFramesPerSecond     = 50
	maxFramePayloadBytes   = 16 * 1024
)

// Error frame codes.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RESOURCE_EXHAUSTED"
	CodeStoreUnavailable = "UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// Handler upgrades GET requests to websocket connections served by the hub.
type Handler struct {
	hub       *Hub
	origins   []string
	opTimeout time.Duration
	metrics   *metrics.Metrics
}

// NewHandler accepts connections from origins; "*" or an empty list allows any.
func NewHandler(hub *Hub, origins []string, opTimeout time.Duration) *Handler {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Handler{hub: hub, origins: origins, opTimeout: opTimeout}
}

func (h *Handler) WithMetrics(m *metrics.Metrics) *Handler {
	h.metrics = m
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	srv := websocket.Server{
		Handshake: func(_ *websocket.Config, r *http.Request) error {
			if !h.originAllowed(r.Header.Get("Origin")) {
				return errors.Errorf("origin %q is not allowed", r.Header.Get("Origin"))
			}
			return nil
		},
		Handler: h.serve,
	}
	srv.ServeHTTP(w, r)
}

func (h *Handler) originAllowed(origin string) bool {
	if origin == "" || len(h.origins) == 0 {
		return true
	}
	for _, o := range h.origins {
		o = strings.TrimSpace(o)
		if o == "*" || strings.EqualFold(strings.TrimSuffix(o, "/"), strings.TrimSuffix(origin, "/")) {
			return true
		}
	}
	return false
}

func (h *Handler) serve(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	c := NewConn(uuid.NewString(), ws)
	h.hub.Register(c)
	defer h.hub.Disconnect(c)

	base := context.Background()
	if req := ws.Request(); req != nil {
		base = req.Context()
	}

	decoder := json.NewDecoder(ws)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var f Frame
		if err := decoder.Decode(&f); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				return
			}
			decodeErrors++
			h.metrics.FrameRejected("decode")
			_ = c.SendError(CodeInvalidArgument, "invalid frame payload", "")
			if decodeErrors >= maxDecodeErrorsPerConn {
				slog.Warn("closing realtime connection after repeated decode errors", "conn_id", c.ID())
				return
			}
			// a syntax error leaves the decoder stuck mid-stream
			decoder = json.NewDecoder(ws)
			continue
		}
		decodeErrors = 0

		if len(f.Payload) > maxFramePayloadBytes {
			h.metrics.FrameRejected("too_large")
			_ = c.SendError(CodeInvalidArgument, "payload too large", f.Type)
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			h.metrics.FrameRejected("flood")
			_ = c.SendError(CodeRateLimited, "rate limit exceeded", f.Type)
			return
		}

		h.metrics.FrameReceived(f.Type)
		ctx, cancel := context.WithTimeout(base, h.opTimeout)
		h.dispatch(ctx, c, f)
		cancel()
	}
}

func (h *Handler) dispatch(ctx context.Context, c *Conn, f Frame) {
	in, err := DecodeFrame(f)
	if err != nil {
		h.reject(c, f.Type, err)
		return
	}

	switch ev := in.(type) {
	case TrackJoin:
		err = h.hub.JoinOrderRoom(c, ev.OrderID)
	case AgentJoin:
		err = h.hub.JoinAgentRoom(c, ev.AgentID)
	case AgentLocation:
		err = h.hub.PublishAgentLocation(ctx, ev)
	case StatusUpdate:
		_, err = h.hub.PublishStatusUpdate(ctx, ev)
	}
	if err != nil {
		h.reject(c, f.Type, err)
	}
}

func (h *Handler) reject(c *Conn, event string, err error) {
	code := errorCode(err)
	h.metrics.FrameRejected(strings.ToLower(code))
	slog.Info("realtime frame rejected", "conn_id", c.ID(), "event", event, "code", code, "error", err.Error())
	_ = c.SendError(code, err.Error(), event)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return CodeInvalidArgument
	case errors.Is(err, models.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, models.ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}
