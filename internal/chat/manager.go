package chat

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/river-app/river/pkg/protocol"
)

// Manager tracks one Shell per conversation. Conversations are keyed by
// an opaque ID: "app" for the built-in chat screen, "telegram:<chat>" or
// "slack:<channel>" for connector chats.
type Manager struct {
	Logger           *slog.Logger
	OnSessionCreated func(conversationID string)
	OnSessionClosed  func(conversationID string)

	base Options

	mu          sync.Mutex
	instruction string
	shells      map[string]*Shell
}

// NewManager creates a Manager that builds shells from opts. The system
// instruction in opts is the starting instruction for every conversation.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		Logger:      opts.Logger,
		base:        opts,
		instruction: opts.SystemInstruction,
		shells:      make(map[string]*Shell),
	}
}

// Get returns the Shell for id, creating it on first use.
func (m *Manager) Get(id string) *Shell {
	m.mu.Lock()
	s, ok := m.shells[id]
	if !ok {
		opts := m.base
		opts.SystemInstruction = m.instruction
		opts.Logger = m.Logger.With("conversation", id)
		s = New(opts)
		m.shells[id] = s
	}
	m.mu.Unlock()

	if !ok {
		m.Logger.Info("conversation created", "conversation", id)
		if m.OnSessionCreated != nil {
			m.OnSessionCreated(id)
		}
	}
	return s
}

// Lookup returns the Shell for id without creating it.
func (m *Manager) Lookup(id string) (*Shell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shells[id]
	return s, ok
}

// Send routes text to the conversation's Shell.
func (m *Manager) Send(ctx context.Context, id, text string, onUpdate UpdateFunc) (protocol.ChatMessage, error) {
	return m.Get(id).SendMessage(ctx, text, onUpdate)
}

// Reset closes the conversation. The next message starts a fresh one.
func (m *Manager) Reset(id string) {
	m.mu.Lock()
	s, ok := m.shells[id]
	if ok {
		delete(m.shells, id)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
		m.Logger.Info("conversation reset", "conversation", id)
		if m.OnSessionClosed != nil {
			m.OnSessionClosed(id)
		}
	}
}

// Instruction returns the system instruction used for new conversations.
func (m *Manager) Instruction() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instruction
}

// ReinitializeAll switches every conversation to instruction.
func (m *Manager) ReinitializeAll(instruction string) {
	m.mu.Lock()
	m.instruction = instruction
	shells := make([]*Shell, 0, len(m.shells))
	for _, s := range m.shells {
		shells = append(shells, s)
	}
	m.mu.Unlock()

	for _, s := range shells {
		s.Reinitialize(instruction)
	}
	m.Logger.Info("conversations reinitialized", "count", len(shells))
}

// IDs returns the active conversation IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.shells))
	for id := range m.shells {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every conversation.
func (m *Manager) Close() {
	m.mu.Lock()
	shells := m.shells
	m.shells = make(map[string]*Shell)
	m.mu.Unlock()
	for _, s := range shells {
		s.Close()
	}
}
