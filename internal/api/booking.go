package api

import (
	"errors"
	"net/http"

	"github.com/river-app/river/internal/booking"
	"github.com/river-app/river/pkg/protocol"
)

func (s *Server) routeBooking(mux *http.ServeMux) {
	d := s.deps
	if d.CarWash != nil {
		mux.HandleFunc("GET /api/car/services", s.requireAuth(s.handleCarServices))
		mux.HandleFunc("PUT /api/car/services", s.requireAuth(s.handleConfirmCarServices))
	}
	if d.Fitness != nil {
		mux.HandleFunc("GET /api/gyms", s.requireAuth(s.handleListGyms))
		mux.HandleFunc("GET /api/fitness", s.requireAuth(s.handleFitnessStatus))
		mux.HandleFunc("PUT /api/fitness/gym", s.requireAuth(s.handleSelectGym))
		mux.HandleFunc("POST /api/fitness/sessions", s.requireAuth(s.handleScheduleTraining))
	}
	if d.Preferences != nil {
		mux.HandleFunc("GET /api/preferences/notifications", s.requireAuth(s.handleGetPreferences))
		mux.HandleFunc("PUT /api/preferences/notifications", s.requireAuth(s.handleSavePreferences))
		mux.HandleFunc("POST /api/preferences/notifications/unsubscribe", s.requireAuth(s.handleUnsubscribeAll))
	}
}

type carServicesResponse struct {
	Available []protocol.CarService `json:"available"`
	Selected  []string              `json:"selected"`
}

func (s *Server) handleCarServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, carServicesResponse{Available: booking.CarServices, Selected: s.deps.CarWash.Selected()})
}

func (s *Server) handleConfirmCarServices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selected []string `json:"selected"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	selected, err := s.deps.CarWash.Confirm(r.Context(), req.Selected)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, carServicesResponse{Available: booking.CarServices, Selected: selected})
}

func (s *Server) handleListGyms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, booking.Gyms)
}

func (s *Server) handleFitnessStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Fitness.Status())
}

func (s *Server) handleSelectGym(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GymID string `json:"gym_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	gym, err := s.deps.Fitness.SelectGym(r.Context(), req.GymID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gym)
}

func (s *Server) handleScheduleTraining(w http.ResponseWriter, r *http.Request) {
	var req booking.TrainingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := s.deps.Fitness.Schedule(r.Context(), req)
	switch {
	case errors.Is(err, booking.ErrNoGym):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, session)
	}
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Preferences.Get())
}

func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	// Unnamed categories keep their current setting.
	p := s.deps.Preferences.Get()
	if !decodeJSON(w, r, &p) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Preferences.Save(r.Context(), p))
}

func (s *Server) handleUnsubscribeAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Preferences.UnsubscribeAll(r.Context()))
}
