package provider

import (
	"context"
	"io"
	"sync"

	"github.com/river-app/river/pkg/protocol"
)

// Session is a conversational context held against a provider: one system
// instruction, one model and the turns exchanged so far. Turns are committed
// only after a reply completes, so a failed or abandoned reply leaves the
// history unchanged.
type Session struct {
	provider    Provider
	model       string
	instruction string

	mu      sync.Mutex
	history []protocol.Turn
}

// NewSession creates a session. An empty model uses the provider default.
func NewSession(p Provider, systemInstruction, model string) *Session {
	return &Session{provider: p, model: model, instruction: systemInstruction}
}

// Instruction returns the system instruction the session was created with.
func (s *Session) Instruction() string { return s.instruction }

// History returns a copy of the committed turns.
func (s *Session) History() []protocol.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Turn(nil), s.history...)
}

// SendStream sends text and returns the incremental reply.
func (s *Session) SendStream(ctx context.Context, text string) (*Reply, error) {
	s.mu.Lock()
	history := make([]protocol.Turn, 0, len(s.history)+1)
	history = append(history, s.history...)
	s.mu.Unlock()
	history = append(history, protocol.Turn{Role: protocol.RoleUser, Text: text})

	stream, err := s.provider.Stream(ctx, protocol.ChatRequest{
		Model:             s.model,
		SystemInstruction: s.instruction,
		History:           history,
	})
	if err != nil {
		return nil, err
	}
	return &Reply{session: s, stream: stream, prompt: text}, nil
}

// Send sends text and waits for the complete reply.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	r, err := s.SendStream(ctx, text)
	if err != nil {
		return "", err
	}
	defer r.Close()
	for {
		if _, err := r.Next(); err == io.EOF {
			return r.Text(), nil
		} else if err != nil {
			return "", err
		}
	}
}

func (s *Session) commit(prompt, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		protocol.Turn{Role: protocol.RoleUser, Text: prompt},
		protocol.Turn{Role: protocol.RoleModel, Text: reply},
	)
}

// Reply is one streamed response within a session.
type Reply struct {
	session *Session
	stream  *Stream
	prompt  string
	text    string
	ended   bool
}

// Next returns the next fragment. At io.EOF the exchange is committed to
// the session history.
func (r *Reply) Next() (string, error) {
	frag, err := r.stream.Next()
	if err == io.EOF && !r.ended {
		r.ended = true
		r.session.commit(r.prompt, r.text)
	}
	if err != nil {
		return "", err
	}
	r.text += frag
	return frag, nil
}

// Text returns everything received so far.
func (r *Reply) Text() string { return r.text }

// Close releases the underlying stream.
func (r *Reply) Close() error { return r.stream.Close() }
