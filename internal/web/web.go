package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"plancal/internal/config"
	"plancal/internal/holiday"
	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/store"
)

// HolidayService is the holiday data the API needs.
type HolidayService interface {
	Holidays(ctx context.Context, country string, year int) ([]model.Holiday, error)
	Snapshot(ctx context.Context, keys ...holiday.Key) holiday.Table
}

// StateStore persists saved planner state.
type StateStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Put(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Export(ctx context.Context) (store.Document, error)
	Import(ctx context.Context, doc store.Document, replace bool) error
	Clear(ctx context.Context) error
}

// Server provides the HTTP API over the calculators, the holiday proxy and
// the state store.
type Server struct {
	cfg      *config.Config
	holidays HolidayService
	state    StateStore
	mux      *http.ServeMux
	now      func() time.Time
}

// NewServer constructs a new Server. state may be nil, which disables the
// /api/state endpoints.
func NewServer(cfg *config.Config, holidays HolidayService, state StateStore) *Server {
	s := &Server{
		cfg:      cfg,
		holidays: holidays,
		state:    state,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the API with request ids, access logging and, when
// configured, basic auth applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestIDMiddleware(accessLogMiddleware(h))
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="plancal", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/holidays", s.handleHolidays)
	s.mux.HandleFunc("GET /api/tz/convert", s.handleConvert)
	s.mux.HandleFunc("GET /api/tz/offset", s.handleOffset)
	s.mux.HandleFunc("POST /api/bizdays/range", s.handleBizRange)
	s.mux.HandleFunc("POST /api/bizdays/add", s.handleBizAdd)
	s.mux.HandleFunc("POST /api/overlap", s.handleOverlap)

	s.mux.HandleFunc("GET /api/state", s.withState(s.handleStateExport))
	s.mux.HandleFunc("POST /api/state", s.withState(s.handleStateImport))
	s.mux.HandleFunc("DELETE /api/state", s.withState(s.handleStateClear))
	s.mux.HandleFunc("GET /api/state/{key}", s.withState(s.handleStateGet))
	s.mux.HandleFunc("PUT /api/state/{key}", s.withState(s.handleStatePut))
	s.mux.HandleFunc("DELETE /api/state/{key}", s.withState(s.handleStateDelete))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// defaultZone is the configured primary zone, falling back to UTC.
func (s *Server) defaultZone() string {
	if s.cfg != nil && s.cfg.Timezone != "" {
		return s.cfg.Timezone
	}
	return "UTC"
}
