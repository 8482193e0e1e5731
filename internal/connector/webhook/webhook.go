// Package webhook accepts chat messages from external systems (home
// automation, scripts) over HTTP and answers with River's reply.
package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/river-app/river/internal/connector"
	"github.com/river-app/river/internal/notify"
)

// Config holds webhook connector configuration.
type Config struct {
	// Endpoints maps endpoint names to their auth settings.
	Endpoints map[string]EndpointConfig `json:"endpoints"`
}

// EndpointConfig holds per-endpoint webhook configuration.
type EndpointConfig struct {
	// Secret for HMAC-SHA256 signature verification. If empty, Bearer auth is used instead.
	Secret string `json:"secret,omitempty"`
	// BearerToken for Authorization header auth. Used if Secret is empty.
	BearerToken string `json:"bearer_token,omitempty"`
}

// Payload is the expected JSON body for webhook requests.
type Payload struct {
	SenderID string         `json:"sender_id"`
	ChatID   string         `json:"chat_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Response is the JSON body returned to the caller.
type Response struct {
	Status string `json:"status"`
	Reply  string `json:"reply,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Signature headers checked, in order.
var signatureHeaders = []string{notify.SignatureHeader, "X-Hub-Signature-256", "X-Signature-256"}

// Handler provides the HTTP handler for webhook endpoints.
type Handler struct {
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
}

// New creates a new webhook handler.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

// ServeHTTP handles webhook requests at /api/webhook/{name}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.PathValue("name")
	if name == "" {
		name = extractName(r.URL.Path)
	}
	if name == "" {
		http.Error(w, "missing endpoint name in path", http.StatusBadRequest)
		return
	}

	endpoint, ok := h.config.Endpoints[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown webhook endpoint: %s", name), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !authenticate(r, endpoint, body) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	content := payload.Content
	if len(payload.Metadata) > 0 {
		metaJSON, _ := json.Marshal(payload.Metadata)
		content = fmt.Sprintf("%s\n\n[Webhook metadata: %s]", content, string(metaJSON))
	}

	inbound := connector.InboundMessage{
		Channel:  "webhook:" + name,
		SenderID: payload.SenderID,
		ChatID:   payload.ChatID,
		Content:  content,
	}
	if inbound.SenderID == "" {
		inbound.SenderID = name
	}
	if inbound.ChatID == "" {
		inbound.ChatID = name
	}

	reply, err := h.handler(r.Context(), inbound)
	resp := Response{Status: "ok", Reply: reply}
	status := http.StatusOK
	if err != nil {
		h.logger.Error("webhook handler error", "endpoint", name, "error", err)
		resp.Status, resp.Error = "error", err.Error()
		if reply == "" {
			status = http.StatusInternalServerError
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func authenticate(r *http.Request, endpoint EndpointConfig, body []byte) bool {
	if endpoint.Secret != "" {
		for _, hdr := range signatureHeaders {
			if sig := r.Header.Get(hdr); sig != "" {
				return notify.Verify(body, endpoint.Secret, sig)
			}
		}
		return false
	}

	if endpoint.BearerToken != "" {
		return r.Header.Get("Authorization") == "Bearer "+endpoint.BearerToken
	}

	// No auth configured: allow (for development).
	return true
}

// extractName gets the last path segment from /api/webhook/{name}.
func extractName(path string) string {
	path = strings.TrimSuffix(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
