// Package inbound routes messages from chat connectors. Slash commands
// request services or report status; everything else goes to the
// conversation keyed by the message's channel and chat.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/river-app/river/internal/chat"
	"github.com/river-app/river/internal/connector"
	"github.com/river-app/river/internal/lifecycle"
	"github.com/river-app/river/pkg/protocol"
)

// HelpText lists the commands Handle understands.
const HelpText = `Here's what I can do:
/new - start a new conversation
/refill - request a water refill
/pickup - request a laundry pickup
/status - water level and open requests
Anything else you send goes straight to River.`

const busyReply = "I'm still working on your last message. One moment!"

// Chats is the part of chat.Manager the router uses.
type Chats interface {
	Send(ctx context.Context, id, text string, onUpdate chat.UpdateFunc) (protocol.ChatMessage, error)
	Reset(id string)
}

// Service is a requestable service, satisfied by *lifecycle.Simulator.
type Service interface {
	Profile() lifecycle.Profile
	RequestNow() (protocol.Ticket, error)
	Current() (protocol.Ticket, bool)
}

// Router handles inbound connector messages.
type Router struct {
	Chats    Chats
	Gauges   func() []protocol.GaugeStatus
	Logger   *slog.Logger
	services map[protocol.ServiceKind]Service
}

// NewRouter creates a Router that sends conversation text to chats.
func NewRouter(chats Chats, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		Chats:    chats,
		Logger:   logger,
		services: make(map[protocol.ServiceKind]Service),
	}
}

// AddService makes s requestable by its kind's command.
func (r *Router) AddService(s Service) {
	r.services[s.Profile().Kind] = s
}

// Handle implements connector.InboundHandler.
func (r *Router) Handle(ctx context.Context, msg connector.InboundMessage) (string, error) {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", nil
	}
	id := msg.ConversationID()

	if strings.HasPrefix(text, "/") {
		name, args, _ := strings.Cut(text[1:], " ")
		name, _, _ = strings.Cut(name, "@") // Telegram group form: /cmd@bot
		switch strings.ToLower(name) {
		case "new", "reset":
			r.Chats.Reset(id)
			return "Started a new conversation. How can I help?", nil
		case "refill":
			return r.request(protocol.ServiceRefill)
		case "pickup", "laundry":
			return r.request(protocol.ServicePickup)
		case "status":
			return r.status(), nil
		case "help":
			return HelpText, nil
		}
		// Unknown commands (e.g. Slack's "/river <question>") chat with their arguments.
		text = strings.TrimSpace(args)
		if text == "" {
			return HelpText, nil
		}
	}

	reply, err := r.Chats.Send(ctx, id, text, nil)
	switch {
	case errors.Is(err, chat.ErrBusy):
		return busyReply, err
	case err != nil:
		// A failed send still leaves a system entry explaining it.
		return reply.Text, err
	}
	return reply.Text, nil
}

func (r *Router) request(kind protocol.ServiceKind) (string, error) {
	svc, ok := r.services[kind]
	if !ok {
		return fmt.Sprintf("Sorry, %s requests aren't available right now.", kind), nil
	}
	t, err := svc.RequestNow()
	if err != nil {
		return "", fmt.Errorf("inbound: request %s: %w", kind, err)
	}
	r.Logger.Info("service requested from chat", "kind", kind, "ticket", t.ID)
	return svc.Profile().RequestedText + " I'll keep you posted.", nil
}

func (r *Router) status() string {
	var lines []string
	if r.Gauges != nil {
		for _, g := range r.Gauges() {
			lines = append(lines, fmt.Sprintf("%s: %s (%d%%, %s)", title(g.Name), g.AmountText, g.Percentage, g.Level))
		}
	}

	kinds := make([]protocol.ServiceKind, 0, len(r.services))
	for k := range r.services {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		t, ok := r.services[k].Current()
		if !ok {
			lines = append(lines, fmt.Sprintf("%s: no requests yet", title(string(k))))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s (requested %s)",
			title(string(k)), strings.ReplaceAll(string(t.Stage), "_", " "), t.RequestedAt.Format("Jan 2 15:04")))
	}

	if len(lines) == 0 {
		return "Nothing to report yet."
	}
	return strings.Join(lines, "\n")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
