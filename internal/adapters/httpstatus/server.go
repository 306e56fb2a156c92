// Package httpstatus expone /healthz, /readyz y /metrics para el orquestador.
package httpstatus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Check es una dependencia para /readyz; nil = lista.
type Check func(ctx context.Context) error

type Server struct {
	http    *http.Server
	log     *zap.Logger
	checks  map[string]Check
	started time.Time
}

// New arma el server; metrics es el handler de Prometheus (metrics.Registry.Handler) o nil.
func New(addr string, checks map[string]Check, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{log: log.Named("http"), checks: checks, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Second))
	r.Use(s.accessLog)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler sirve para tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start bloquea hasta Stop o error.
func (s *Server) Start() error {
	s.log.Info("status server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error { return s.http.Shutdown(ctx) }

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// readyz corre todos los checks; 503 si alguno falla.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	sort.Strings(names)

	status := http.StatusOK
	out := make(map[string]string, len(names))
	for _, n := range names {
		if err := s.checks[n](r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			out[n] = err.Error()
			continue
		}
		out[n] = "ok"
	}
	writeJSON(w, status, out)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
