// Package httpapi exposes the engine over HTTP: JSON request/response for
// single-shot turns and Server-Sent Events for streaming ones.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petrijr/advisa/internal/persistence"
	"github.com/petrijr/advisa/pkg/api"
)

// Server serves the thread API.
type Server struct {
	engine api.Engine
	logger *slog.Logger
}

// Option configures the handler returned by NewHandler.
type Option func(*handlerOptions)

type handlerOptions struct {
	logger   *slog.Logger
	registry *prometheus.Registry
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *handlerOptions) { o.logger = logger }
}

// WithMetricsRegistry mounts /metrics backed by reg.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *handlerOptions) { o.registry = reg }
}

// NewHandler builds the HTTP routes over the engine.
func NewHandler(engine api.Engine, opts ...Option) http.Handler {
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	s := &Server{engine: engine, logger: o.logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if o.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/threads", s.listThreads)
		r.Route("/threads/{threadID}", func(r chi.Router) {
			r.Post("/invoke", s.invoke)
			r.Post("/stream", s.stream)
			r.Get("/state", s.state)
		})
	})

	return r
}

// turnRequest is the body of invoke and stream requests.
type turnRequest struct {
	UserInput     string             `json:"user_input"`
	ProcessReport *api.ProcessReport `json:"process_report,omitempty"`
}

// errorResponse is the JSON body of every failed request. Message is the
// plain-language explanation; Detail is the internal error string.
type errorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "The request body could not be parsed.",
			Detail:  err.Error(),
		})
		return
	}

	state, err := s.engine.Invoke(r.Context(), threadID, api.Input{
		UserInput:     req.UserInput,
		ProcessReport: req.ProcessReport,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"thread_id": threadID,
		"state":     state,
	})
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "The request body could not be parsed.",
			Detail:  err.Error(),
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: "Streaming is not supported by this server.",
		})
		return
	}

	events, err := s.engine.Stream(r.Context(), threadID, api.Input{
		UserInput:     req.UserInput,
		ProcessReport: req.ProcessReport,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		if ev.Err != nil {
			payload, _ := json.Marshal(errorResponse{
				Message: api.UserMessage(ev.Err),
				Detail:  ev.Err.Error(),
			})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			flusher.Flush()
			continue
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("encode stream event", "error", err)
			continue
		}
		name := string(ev.Mode)
		if ev.Final {
			name = "final"
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
		flusher.Flush()
	}
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	snap, err := s.engine.GetState(r.Context(), threadID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.engine.Threads(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if threads == nil {
		threads = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	message := api.UserMessage(err)
	if errors.Is(err, persistence.ErrThreadNotFound) {
		message = "No conversation exists for this thread ID."
	}
	writeJSON(w, status, errorResponse{
		Message: message,
		Detail:  err.Error(),
	})
}

func statusFor(err error) int {
	var (
		rerr *api.RouteNotFoundError
		merr *api.MaxIterationsError
		oerr *api.OracleError
	)
	switch {
	case errors.Is(err, persistence.ErrThreadNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrThreadBusy):
		return http.StatusConflict
	case errors.As(err, &rerr), errors.As(err, &merr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &oerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
