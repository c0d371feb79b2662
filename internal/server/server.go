// Package server exposes render sessions over HTTP.
//
// Each browser tab creates a session with POST /api/sessions and then posts
// events to it one at a time. The server keeps sessions in a
// [session.MemoryStore], so they are lost on restart.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/observability"
	"github.com/matzehuels/radialtree/pkg/pipeline"
	"github.com/matzehuels/radialtree/pkg/session"
	"github.com/matzehuels/radialtree/pkg/sink"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// Defaults for [Config].
const (
	DefaultEventRate  = 30 // events per second per session
	DefaultEventBurst = 60
	maxBodyBytes      = 1 << 20
)

// Config configures a [Server].
type Config struct {
	// Document is the document every new session renders.
	Document []byte

	// Options carries the session options and the decode format. Width and
	// Height are the size used when a client does not send one.
	Options pipeline.Options

	// TTL is the idle lifetime of a session.
	TTL time.Duration

	// EventRate and EventBurst bound how fast one session accepts events.
	EventRate  float64
	EventBurst int

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger *log.Logger
}

// Server handles the session API.
type Server struct {
	store *session.MemoryStore
	opts  pipeline.Options
	cfg   Config
	log   *log.Logger

	mu       sync.RWMutex
	doc      *tree.RawNode
	limiters map[string]*rate.Limiter
}

// New decodes cfg.Document and creates a server for it.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.EventRate <= 0 {
		cfg.EventRate = DefaultEventRate
	}
	if cfg.EventBurst <= 0 {
		cfg.EventBurst = DefaultEventBurst
	}
	opts := cfg.Options
	opts.Logger = cfg.Logger
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}

	doc, err := pipeline.Decode(ctx, cfg.Document, opts)
	if err != nil {
		return nil, err
	}
	return &Server{
		store:    session.NewMemoryStore(cfg.TTL),
		opts:     opts,
		cfg:      cfg,
		log:      cfg.Logger,
		doc:      doc,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Store returns the session store.
func (s *Server) Store() *session.MemoryStore { return s.store }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Get("/svg", s.handleSVG)
			r.Post("/events", s.handleEvent)
		})
	})
	return r
}

// createRequest is the optional body of POST /api/sessions.
type createRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Expand []int   `json:"expand"`
}

// sessionResponse describes a session and its current scene.
type sessionResponse struct {
	ID        string          `json:"id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Update    *session.Update `json:"update,omitempty"`
	Scene     json.RawMessage `json:"scene"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := s.opts
	if req.Width != 0 || req.Height != 0 {
		opts.Width, opts.Height = req.Width, req.Height
	}
	opts.Expand = req.Expand

	s.mu.RLock()
	doc := s.doc
	s.mu.RUnlock()

	sess, err := pipeline.OpenSession(r.Context(), doc, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry := s.store.Add(sess)
	s.log.Info("session created", "id", entry.ID, "width", opts.Width, "height", opts.Height)

	resp, err := s.describe(entry, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.describe(entry, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var out []byte
	_ = entry.Do(func(sess *session.Session) error {
		out = sink.RenderSVG(sink.CaptureSettled(sess))
		return nil
	})
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(out)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.dropLimiter(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.limiter(id).Allow() {
		s.writeError(w, r, &errors.RateLimitedError{RetryAfter: 1, Message: "too many events"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	ev, err := interact.DecodeEvent(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var u session.Update
	err = entry.Do(func(sess *session.Session) error {
		var err error
		u, err = sess.DispatchContext(r.Context(), ev)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.describe(entry, &u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

// describe captures the entry's scene at the current instant.
func (s *Server) describe(entry *session.Entry, u *session.Update) (sessionResponse, error) {
	resp := sessionResponse{ID: entry.ID, Update: u}
	err := entry.Do(func(sess *session.Session) error {
		data, err := sink.RenderJSON(sink.Capture(sess))
		resp.Scene = data
		resp.ExpiresAt = entry.ExpiresAt
		return err
	})
	return resp, err
}

func (s *Server) limiter(id string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.EventRate), s.cfg.EventBurst)
		s.limiters[id] = l
	}
	return l
}

func (s *Server) dropLimiter(id string) {
	s.mu.Lock()
	delete(s.limiters, id)
	s.mu.Unlock()
}

// Reload replaces the document and reloads it into every live session.
func (s *Server) Reload(ctx context.Context, data []byte) error {
	doc, err := pipeline.Decode(ctx, data, s.opts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	n := 0
	err = s.store.Each(func(id string, sess *session.Session) error {
		if _, err := sess.LoadContext(ctx, doc); err != nil {
			return errors.Wrap(errors.ErrCodeHandler, err, "reload session %s", id)
		}
		n++
		return nil
	})
	s.log.Info("document reloaded", "sessions", n)
	return err
}

// Cleanup drops expired sessions and their limiters.
func (s *Server) Cleanup(ctx context.Context) int {
	n := s.store.Cleanup(ctx)
	s.mu.Lock()
	for id := range s.limiters {
		if _, err := s.store.Get(id); err != nil {
			delete(s.limiters, id)
		}
	}
	s.mu.Unlock()
	if n > 0 {
		s.log.Debug("expired sessions removed", "count", n)
	}
	return n
}

// Serve listens on addr until ctx is cancelled, cleaning up expired
// sessions every interval.
func (s *Server) Serve(ctx context.Context, addr string, interval time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
				return
			case <-ticker.C:
				s.Cleanup(ctx)
			}
		}
	}()

	s.log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// observe reports every request to the HTTP hooks under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := string(errors.GetCode(err))
	if rl, ok := err.(*errors.RateLimitedError); ok {
		code = string(rl.Code())
		w.Header().Set("Retry-After", "1")
	}
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode body")
	}
	return nil
}
