package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/river-app/river/internal/chat"
	"github.com/river-app/river/pkg/protocol"
)

func (s *Server) routeChat(mux *http.ServeMux) {
	if s.deps.Chats == nil {
		return
	}
	mux.HandleFunc("GET /api/chat", s.requireAuth(s.handleListChats))
	mux.HandleFunc("GET /api/chat/{conversation}/messages", s.requireAuth(s.handleGetMessages))
	mux.HandleFunc("POST /api/chat/{conversation}/messages", s.requireAuth(s.handleSendMessage))
	mux.HandleFunc("DELETE /api/chat/{conversation}", s.requireAuth(s.handleResetChat))
}

func (s *Server) handleListChats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Chats.IDs())
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	sh, ok := s.deps.Chats.Lookup(r.PathValue("conversation"))
	if !ok {
		writeJSON(w, http.StatusOK, chat.Snapshot{State: chat.StateIdle.String(), Messages: []protocol.ChatMessage{}})
		return
	}
	writeJSON(w, http.StatusOK, sh.Snapshot())
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	s.deps.Chats.Reset(r.PathValue("conversation"))
	w.WriteHeader(http.StatusNoContent)
}

// errSendCancelled is reported when a reset or shutdown ends a send.
const errSendCancelled = "send cancelled: the conversation was reset"

type sendRequest struct {
	Text string `json:"text"`
}

type sendResponse struct {
	Message protocol.ChatMessage `json:"message"`
	Error   string               `json:"error,omitempty"`
}

// handleSendMessage sends one user message. Clients that accept
// text/event-stream get fragment events as the reply streams in, then a
// done or error event.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("conversation")
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		msg, err := s.deps.Chats.Send(r.Context(), id, req.Text, nil)
		if err != nil {
			s.writeSendError(w, msg, err)
			return
		}
		writeJSON(w, http.StatusOK, sendResponse{Message: msg})
		return
	}

	sse := newEventStream(w)
	msg, err := s.deps.Chats.Send(r.Context(), id, req.Text, func(fragment, _ string) {
		sse.send("fragment", map[string]string{"text": fragment})
	})
	switch {
	case err == nil:
		sse.send("done", msg)
	case r.Context().Err() != nil:
		// Client went away.
	case !sse.started && (isRejection(err) || errors.Is(err, context.Canceled)):
		s.writeSendError(w, msg, err)
	case errors.Is(err, context.Canceled):
		sse.send("error", sendResponse{Message: msg, Error: errSendCancelled})
	default:
		sse.send("error", sendResponse{Message: msg, Error: err.Error()})
	}
}

// isRejection reports whether a send was refused without touching the log.
func isRejection(err error) bool {
	return errors.Is(err, chat.ErrBusy) || errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrClosed)
}

func (s *Server) writeSendError(w http.ResponseWriter, msg protocol.ChatMessage, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusConflict, errSendCancelled)
	case errors.Is(err, chat.ErrConfigMissing):
		writeJSON(w, http.StatusServiceUnavailable, sendResponse{Message: msg, Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, sendResponse{Message: msg, Error: err.Error()})
	}
}

// eventStream writes server-sent events. Headers go out with the first
// event so a request rejected up front can still get a plain status.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newEventStream(w http.ResponseWriter) *eventStream {
	f, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: f}
}

func (e *eventStream) send(event string, data any) {
	if !e.started {
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload)
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
