package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/river-app/river/internal/voice"
)

// Clients upload captured audio in chunks; one chunk is capped here.
const maxAudioChunk = 10 << 20

func (s *Server) routeVoice(mux *http.ServeMux) {
	if s.deps.Voice != nil {
		mux.HandleFunc("GET /api/voice/status", s.requireAuth(s.handleVoiceStatus))
		mux.HandleFunc("POST /api/voice/start", s.requireAuth(s.handleVoiceStart))
		mux.HandleFunc("PUT /api/voice/audio", s.requireAuth(s.handleVoiceAudio))
		mux.HandleFunc("POST /api/voice/stop", s.requireAuth(s.handleVoiceStop))
		mux.HandleFunc("POST /api/voice/cancel", s.requireAuth(s.handleVoiceCancel))
	}
	if s.deps.Playback != nil {
		mux.HandleFunc("GET /api/voice/audio", s.requireAuth(s.handleVoicePlayback))
		mux.HandleFunc("POST /api/voice/played", s.requireAuth(s.handleVoicePlayed))
	}
}

func (s *Server) handleVoiceStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Voice.Status())
}

func (s *Server) handleVoiceStart(w http.ResponseWriter, _ *http.Request) {
	err := s.deps.Voice.StartListening()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.deps.Voice.Status())
	case errors.Is(err, voice.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, voice.ErrRecognitionUnsupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleVoiceAudio(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioChunk))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "audio chunk too large")
		return
	}
	if err := s.deps.Voice.WriteAudio(chunk); err != nil {
		if errors.Is(err, voice.ErrNotListening) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoiceStop(w http.ResponseWriter, _ *http.Request) {
	err := s.deps.Voice.StopListening()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.deps.Voice.Status())
	case errors.Is(err, voice.ErrNotListening):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeJSON(w, http.StatusBadGateway, s.deps.Voice.Status())
	}
}

func (s *Server) handleVoiceCancel(w http.ResponseWriter, _ *http.Request) {
	s.deps.Voice.StopAll()
	writeJSON(w, http.StatusOK, s.deps.Voice.Status())
}

// handleVoicePlayback serves the latest reply clip. Pass ?after=<seq> to
// poll: 204 means nothing newer than seq.
func (s *Server) handleVoicePlayback(w http.ResponseWriter, r *http.Request) {
	clip, seq, ok := s.deps.Playback.Latest()
	after, _ := strconv.Atoi(r.URL.Query().Get("after"))
	if !ok || seq <= after {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("X-Voice-Seq", strconv.Itoa(seq))
	w.WriteHeader(http.StatusOK)
	w.Write(clip)
}

func (s *Server) handleVoicePlayed(w http.ResponseWriter, _ *http.Request) {
	s.deps.Playback.Ack()
	w.WriteHeader(http.StatusNoContent)
}
