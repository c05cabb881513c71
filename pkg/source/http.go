package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/vizframe/pkg/buildinfo"
	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/store"
	"github.com/matzehuels/vizframe/pkg/transform"
	"github.com/matzehuels/vizframe/pkg/view"
)

// DefaultQueryTimeout bounds how long /resolve waits for the owning loop.
const DefaultQueryTimeout = 2 * time.Second

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// Backend is the part of a view the HTTP adapter uses. *view.View
// satisfies it; every method is safe from any goroutine.
type Backend interface {
	store.Pusher
	RequestReferenceFrame(frame string)
	Snapshot() *view.Snapshot
	Query(ctx context.Context, fn func(*view.View) error) error
}

// HandlerOption configures NewHandler.
type HandlerOption func(*handler)

// WithHandlerLogger sets the request logger.
func WithHandlerLogger(l *log.Logger) HandlerOption {
	return func(h *handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithQueryTimeout sets how long resolves wait for the owning loop.
func WithQueryTimeout(d time.Duration) HandlerOption {
	return func(h *handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithRecorder appends every accepted sample to s.
func WithRecorder(s store.Store) HandlerOption {
	return func(h *handler) { h.recorder = s }
}

type handler struct {
	backend  Backend
	logger   *log.Logger
	timeout  time.Duration
	recorder store.Store
}

// NewHandler returns the HTTP API of b:
//
//	POST /transforms/static    push one sample or an array of samples
//	POST /transforms/dynamic
//	GET  /frames               frames seen so far
//	GET  /edges                edges of the transform graph
//	GET  /plugins              published plugin states
//	GET  /resolve              ?source=&target=[&time=RFC3339]
//	PUT  /reference            {"frame": "..."}
//	GET  /healthz
func NewHandler(b Backend, opts ...HandlerOption) http.Handler {
	h := &handler{backend: b, logger: log.Default(), timeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Post("/transforms/static", h.push(transform.KindStatic))
	r.Post("/transforms/dynamic", h.push(transform.KindDynamic))
	r.Get("/frames", h.frames)
	r.Get("/edges", h.edges)
	r.Get("/plugins", h.plugins)
	r.Get("/resolve", h.resolve)
	r.Put("/reference", h.reference)
	r.Get("/healthz", h.health)
	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start).Round(time.Microsecond))
	})
}

// =============================================================================
// Writes
// =============================================================================

type pushResponse struct {
	Accepted int      `json:"accepted"`
	Errors   []string `json:"errors,omitempty"`
}

func (h *handler) push(kind transform.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		samples, err := decodeSamples(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, verrors.Wrap(verrors.ErrCodeInvalidInput, err, "decode body"))
			return
		}

		var resp pushResponse
		var accepted []store.Sample
		for _, s := range samples {
			s.Kind = kind
			if kind == transform.KindStatic {
				s.Time = time.Time{}
			}
			if err := s.Push(h.backend); err != nil {
				resp.Errors = append(resp.Errors, err.Error())
				continue
			}
			accepted = append(accepted, s)
		}
		resp.Accepted = len(accepted)

		if h.recorder != nil && len(accepted) > 0 {
			if err := h.recorder.Append(r.Context(), accepted...); err != nil {
				h.logger.Warn("recording failed", "err", err)
			}
		}

		status := http.StatusAccepted
		if len(resp.Errors) > 0 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, resp)
	}
}

// decodeSamples accepts a single JSON object or an array of them.
func decodeSamples(r io.Reader) ([]store.Sample, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var samples []store.Sample
		if err := json.Unmarshal(raw, &samples); err != nil {
			return nil, err
		}
		return samples, nil
	}
	var s store.Sample
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return []store.Sample{s}, nil
}

type referenceRequest struct {
	Frame string `json:"frame"`
}

func (h *handler) reference(w http.ResponseWriter, r *http.Request) {
	var req referenceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, verrors.Wrap(verrors.ErrCodeInvalidInput, err, "decode body"))
		return
	}
	if err := verrors.ValidateFrameName(req.Frame); err != nil {
		writeError(w, err)
		return
	}
	h.backend.RequestReferenceFrame(req.Frame)
	writeJSON(w, http.StatusAccepted, req)
}

// =============================================================================
// Reads
// =============================================================================

func (h *handler) snapshot() *view.Snapshot {
	if s := h.backend.Snapshot(); s != nil {
		return s
	}
	return &view.Snapshot{Frames: []string{}, Edges: []transform.EdgeInfo{}, Plugins: []view.PluginState{}}
}

func (h *handler) frames(w http.ResponseWriter, _ *http.Request) {
	s := h.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"reference_frame": s.Reference, "frames": s.Frames})
}

func (h *handler) edges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot().Edges)
}

func (h *handler) plugins(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot().Plugins)
}

type resolveResponse struct {
	Source string     `json:"source"`
	Target string     `json:"target"`
	Time   time.Time  `json:"time,omitzero"`
	Pose   *pose.Pose `json:"pose,omitempty"`
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp := resolveResponse{Source: q.Get("source"), Target: q.Get("target")}
	for _, name := range []string{resp.Source, resp.Target} {
		if err := verrors.ValidateFrameName(name); err != nil {
			writeError(w, err)
			return
		}
	}
	if raw := q.Get("time"); raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, verrors.Wrap(verrors.ErrCodeInvalidInput, err, "time must be RFC 3339"))
			return
		}
		resp.Time = at
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		p  pose.Pose
		ok bool
	)
	err := h.backend.Query(ctx, func(v *view.View) error {
		for v.Graph().Step() {
		}
		p, ok = v.Graph().Resolve(resp.Source, resp.Target, resp.Time)
		return nil
	})
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, verrors.Wrap(verrors.ErrCodeTimeout, err, "view did not answer"))
		return
	case err != nil:
		writeError(w, err)
		return
	case !ok:
		writeError(w, verrors.New(verrors.ErrCodeNotFound, "no transformation from %s to %s", resp.Source, resp.Target))
		return
	}
	resp.Pose = &p
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status string `json:"status"`
	buildinfo.Info
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Info: buildinfo.Get()})
}

// =============================================================================
// Encoding
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := verrors.GetCode(err)
	writeJSON(w, statusOf(code), errorResponse{Error: verrors.UserMessage(err), Code: string(code)})
}

func statusOf(code verrors.Code) int {
	switch code {
	case verrors.ErrCodeInvalidInput, verrors.ErrCodeInvalidPose, verrors.ErrCodeInvalidFrame,
		verrors.ErrCodeInvalidSample, verrors.ErrCodeInvalidConfig, verrors.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case verrors.ErrCodeNotFound, verrors.ErrCodeUnknownPlugin, verrors.ErrCodeUnknownHandle:
		return http.StatusNotFound
	case verrors.ErrCodeDuplicateEdge, verrors.ErrCodeDuplicatePlugin:
		return http.StatusConflict
	case verrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
