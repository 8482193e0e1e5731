package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/river-app/river/internal/gauge"
	"github.com/river-app/river/internal/lifecycle"
	"github.com/river-app/river/internal/scheduler"
	"github.com/river-app/river/internal/ticket"
	"github.com/river-app/river/pkg/protocol"
)

func (s *Server) routeHome(mux *http.ServeMux) {
	d := s.deps
	if d.Gauges != nil {
		mux.HandleFunc("GET /api/gauges", s.requireAuth(s.handleListGauges))
		mux.HandleFunc("GET /api/gauges/{name}", s.requireAuth(s.handleGetGauge))
		mux.HandleFunc("POST /api/gauges/{name}/consume", s.requireAuth(s.handleConsume))
		mux.HandleFunc("GET /api/gauges/{name}/log", s.requireAuth(s.handleGaugeLog))
	}
	if d.History != nil {
		mux.HandleFunc("GET /api/deliveries", s.requireAuth(s.handleDeliveries))
		mux.HandleFunc("GET /api/consumption", s.requireAuth(s.handleConsumption))
	}
	if d.Refills != nil {
		mux.HandleFunc("POST /api/refills", s.requireAuth(s.handleRequest(d.Refills)))
		mux.HandleFunc("GET /api/refills/current", s.requireAuth(s.handleCurrent(d.Refills)))
	}
	if d.Pickups != nil {
		mux.HandleFunc("POST /api/pickups", s.requireAuth(s.handleRequest(d.Pickups)))
		mux.HandleFunc("GET /api/pickups/current", s.requireAuth(s.handleCurrent(d.Pickups)))
	}
	if d.Tickets != nil {
		mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
		mux.HandleFunc("GET /api/tickets/{id}", s.requireAuth(s.handleGetTicket))
	}
	if d.Scheduler != nil {
		mux.HandleFunc("GET /api/schedules", s.requireAuth(s.handleListSchedules))
		mux.HandleFunc("PUT /api/schedules/{service}", s.requireAuth(s.handleSetSchedule))
	}
	if d.Personality != nil {
		mux.HandleFunc("GET /api/personality", s.requireAuth(s.handleGetPersonality))
		mux.HandleFunc("PUT /api/personality", s.requireAuth(s.handleSetPersonality))
	}
}

// --- Gauges ---

func (s *Server) handleListGauges(w http.ResponseWriter, _ *http.Request) {
	all := s.deps.Gauges.All()
	out := make([]protocol.GaugeStatus, 0, len(all))
	for _, g := range all {
		out = append(out, g.Status())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) gauge(w http.ResponseWriter, r *http.Request) (*gauge.Gauge, bool) {
	name := r.PathValue("name")
	g, ok := s.deps.Gauges.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown gauge: "+name)
	}
	return g, ok
}

func (s *Server) handleGetGauge(w http.ResponseWriter, r *http.Request) {
	if g, ok := s.gauge(w, r); ok {
		writeJSON(w, http.StatusOK, g.Status())
	}
}

type consumeRequest struct {
	Amount float64 `json:"amount"`
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gauge(w, r)
	if !ok {
		return
	}
	var req consumeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st, err := g.Decrement(r.Context(), req.Amount)
	if err != nil {
		if errors.Is(err, gauge.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("consume failed", "gauge", g.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGaugeLog(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gauge(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)

	// Persisted history outlives the in-memory log across restarts.
	if s.deps.History != nil {
		entries, err := s.deps.History.Log(g.Name(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []protocol.LogEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}
	writeJSON(w, http.StatusOK, g.Log(limit))
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	ds, err := s.deps.History.Deliveries(r.URL.Query().Get("gauge"), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ds == nil {
		ds = []protocol.Delivery{}
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleConsumption(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("gauge")
	if name == "" {
		name = gauge.Water
	}
	months, err := s.deps.History.MonthlyConsumption(name, queryInt(r, "months", 6))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if months == nil {
		months = []protocol.MonthlyConsumption{}
	}
	writeJSON(w, http.StatusOK, months)
}

// --- Services ---

func (s *Server) handleRequest(sim *lifecycle.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		t, err := sim.RequestNow()
		if err != nil {
			if errors.Is(err, lifecycle.ErrClosed) {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.logger.Info("service requested", "kind", t.Kind, "ticket", t.ID)
		writeJSON(w, http.StatusCreated, t)
	}
}

func (s *Server) handleCurrent(sim *lifecycle.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		t, ok := sim.Current()
		if !ok {
			writeError(w, http.StatusNotFound, "no "+string(sim.Kind())+" requested yet")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ticket.Filter{
		Kind:  protocol.ServiceKind(q.Get("kind")),
		Stage: protocol.Stage(q.Get("stage")),
		Limit: queryInt(r, "limit", 50),
	}
	ts, err := s.deps.Tickets.List(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ts == nil {
		ts = []protocol.Ticket{}
	}
	if total, err := s.deps.Tickets.Count(f); err == nil {
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Tickets.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- Schedules ---

func (s *Server) handleListSchedules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Scheduler.Services())
}

type scheduleRequest struct {
	Enabled   bool                `json:"enabled"`
	Frequency scheduler.Frequency `json:"frequency"`
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	service := protocol.ServiceKind(r.PathValue("service"))
	var req scheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.deps.Scheduler.SetService(service, req.Enabled, req.Frequency); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, sc := range s.deps.Scheduler.Services() {
		if sc.Service == service {
			writeJSON(w, http.StatusOK, sc)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Personality ---

func (s *Server) handleGetPersonality(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Personality.Get())
}

func (s *Server) handleSetPersonality(w http.ResponseWriter, r *http.Request) {
	// Start from the current settings so a partial body changes only what it names.
	p := s.deps.Personality.Get()
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := s.deps.Personality.Set(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}
