package personality

import (
	"log/slog"
	"sync"

	"github.com/river-app/river/pkg/protocol"
)

// Subscriber is called with the new personality and its derived instruction.
type Subscriber func(p protocol.Personality, instruction string)

// Store holds the current personality.
type Store struct {
	logger *slog.Logger

	mu   sync.RWMutex
	p    protocol.Personality
	subs []Subscriber
}

// NewStore creates a Store starting at p. A zero p uses the default personality.
func NewStore(p protocol.Personality, logger *slog.Logger) *Store {
	if p == (protocol.Personality{}) {
		p = protocol.DefaultPersonality()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{p: p, logger: logger}
}

// Get returns the current personality.
func (s *Store) Get() protocol.Personality {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// Instruction returns the system instruction for the current personality.
func (s *Store) Instruction() string {
	return Instruction(s.Get())
}

// Subscribe registers fn to run after every change.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Set validates and stores p. Subscribers run only when the derived
// instruction changes; a voice-only change does not reset conversations.
func (s *Store) Set(p protocol.Personality) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.p
	s.p = p
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.Unlock()

	s.logger.Info("personality updated",
		"humor", p.Humor, "voice", p.Voice, "tone", p.Tone, "language", p.Language)

	instruction := Instruction(p)
	if instruction == Instruction(prev) {
		return nil
	}
	for _, fn := range subs {
		fn(p, instruction)
	}
	return nil
}
