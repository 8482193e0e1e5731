package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/river-app/river/internal/booking"
	"github.com/river-app/river/internal/chat"
	"github.com/river-app/river/internal/gauge"
	"github.com/river-app/river/internal/lifecycle"
	"github.com/river-app/river/internal/logbuf"
	"github.com/river-app/river/internal/notify"
	"github.com/river-app/river/internal/personality"
	"github.com/river-app/river/internal/scheduler"
	"github.com/river-app/river/internal/ticket"
	"github.com/river-app/river/internal/voice"
)

// LogQuerier abstracts log entry querying to avoid coupling to logbuf's Buffer.
type LogQuerier interface {
	Query(f logbuf.Filter) []logbuf.Entry
}

// Deps are the components the API serves. Routes for a nil component are
// not registered.
type Deps struct {
	Gauges        *gauge.Set
	History       gauge.Store
	Refills       *lifecycle.Simulator
	Pickups       *lifecycle.Simulator
	Tickets       ticket.Store
	Scheduler     *scheduler.Scheduler
	Personality   *personality.Store
	Chats         *chat.Manager
	Voice         *voice.Conversation
	Playback      *voice.Outbox
	Notifications *notify.Feed
	Preferences   *notify.Preferences
	CarWash       *booking.CarWash
	Fitness       *booking.Fitness
	Events        http.Handler // websocket hub
	Webhook       http.Handler // inbound connector webhooks, authenticated per endpoint
	Logs          LogQuerier
}

// Config holds API server configuration.
type Config struct {
	Host        string
	Port        int
	Key         string   // API key for Bearer auth
	CORSOrigins []string // empty allows any origin
}

// Server is the River REST API server.
type Server struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	srv    *http.Server
}

// NewServer creates a new API server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	s.routeHome(mux)
	s.routeChat(mux)
	s.routeVoice(mux)
	s.routeBooking(mux)
	if deps.Notifications != nil {
		mux.HandleFunc("GET /api/notifications", s.requireAuth(s.handleNotifications))
	}
	if deps.Events != nil {
		mux.HandleFunc("GET /api/events", s.requireAuth(deps.Events.ServeHTTP))
	}
	if deps.Webhook != nil {
		mux.Handle("POST /api/webhook/{name}", deps.Webhook)
	}
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.cfg.CORSOrigins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(s.cfg.CORSOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth checks the Bearer token. Browsers can't set headers on a
// websocket handshake, so access_token in the query is accepted too.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			token = r.URL.Query().Get("access_token")
		}
		if token != s.cfg.Key {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Notifications.Recent(queryInt(r, "limit", 50)))
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	q := r.URL.Query()
	f := logbuf.Filter{
		MinLevel:  slog.LevelDebug,
		Component: q.Get("component"),
		Contains:  q.Get("q"),
		Limit:     queryInt(r, "limit", 200),
	}
	if lvl := q.Get("level"); lvl != "" {
		f.MinLevel = logbuf.ParseLevel(lvl)
	}
	if since := q.Get("since"); since != "" {
		if ms, err := strconv.ParseInt(since, 10, 64); err == nil {
			f.Since = time.UnixMilli(ms)
		}
	}

	entries := s.deps.Logs.Query(f)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// queryInt reads a positive integer query parameter.
func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
