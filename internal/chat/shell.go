package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/river-app/river/internal/provider"
	"github.com/river-app/river/pkg/protocol"
)

// State is the position of a Shell in its send cycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// UpdateFunc receives each fragment and the accumulated model text.
type UpdateFunc func(fragment, accumulated string)

// Options configures a Shell. A nil Provider means no credential is
// configured; every send then fails with ErrConfigMissing.
type Options struct {
	Provider          provider.Provider
	Model             string
	SystemInstruction string
	Logger            *slog.Logger
	Now               func() time.Time
}

// Shell mediates between user input and a streaming chat provider. It owns
// the ordered message log, the loading flag and the last error.
type Shell struct {
	provider provider.Provider
	model    string
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	session  *provider.Session
	gen      uint64
	messages []protocol.ChatMessage
	state    State
	err      error
	cancel   context.CancelFunc
	closed   bool
}

// Snapshot is a consistent read of a Shell's observable state.
type Snapshot struct {
	State     string                 `json:"state"`
	IsLoading bool                   `json:"is_loading"`
	Error     string                 `json:"error,omitempty"`
	Messages  []protocol.ChatMessage `json:"messages"`
}

// New creates a Shell and its first provider session.
func New(opts Options) *Shell {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Shell{
		provider: opts.Provider,
		model:    opts.Model,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	s.Reinitialize(opts.SystemInstruction)
	return s
}

// Reinitialize replaces the provider session with one built for
// systemInstruction. An in-flight send on the old session is cancelled.
// The message log is kept; the model starts without prior context.
func (s *Shell) Reinitialize(systemInstruction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++

	if s.provider == nil {
		s.session = nil
		s.err = ErrConfigMissing
		s.state = StateErrored
		s.logger.Error("chat session not created", "error", ErrConfigMissing)
		return ErrConfigMissing
	}

	s.session = provider.NewSession(s.provider, systemInstruction, s.model)
	s.state = StateIdle
	s.err = nil
	s.logger.Debug("chat session created", "provider", s.provider.Name(), "instruction_len", len(systemInstruction))
	return nil
}

// SendMessage appends text as a user entry and streams the model's reply
// into a new model entry. It returns the final model entry, or the system
// entry describing the failure.
//
// A blank text or a send already in flight is rejected without changing the log.
func (s *Shell) SendMessage(ctx context.Context, text string, onUpdate UpdateFunc) (protocol.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return protocol.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return protocol.ChatMessage{}, ErrClosed
	}
	if s.state == StateSending || s.state == StateStreaming {
		s.mu.Unlock()
		return protocol.ChatMessage{}, ErrBusy
	}

	s.appendLocked(protocol.RoleUser, text)
	s.err = nil

	if s.session == nil {
		msg := s.failLocked(ErrConfigMissing)
		s.mu.Unlock()
		return msg, ErrConfigMissing
	}

	s.state = StateSending
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	gen := s.gen
	session := s.session
	s.mu.Unlock()
	defer cancel()

	reply, err := session.SendStream(ctx, text)
	if err != nil {
		return s.finishFailed(ctx, gen, err)
	}
	defer reply.Close()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return protocol.ChatMessage{}, context.Canceled
	}
	idx := s.appendLocked(protocol.RoleModel, "")
	s.mu.Unlock()

	for {
		frag, err := reply.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.finishFailed(ctx, gen, err)
		}

		accumulated := reply.Text()
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return protocol.ChatMessage{}, context.Canceled
		}
		s.state = StateStreaming
		s.messages[idx].Text = accumulated
		s.mu.Unlock()

		if onUpdate != nil {
			onUpdate(frag, accumulated)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.state = StateIdle
		s.cancel = nil
	}
	final := s.messages[idx]
	s.logger.Debug("chat reply complete", "message_id", final.ID, "len", len(final.Text))
	return final, nil
}

// finishFailed records err for the send belonging to gen. A send that was
// superseded or whose context ended returns context.Canceled whatever the
// transport reported, and leaves no entry in the log.
func (s *Shell) finishFailed(ctx context.Context, gen uint64, err error) (protocol.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug("superseded chat send ended", "error", err)
		return protocol.ChatMessage{}, context.Canceled
	}
	s.cancel = nil
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		s.state = StateIdle
		s.logger.Info("chat send cancelled", "error", err)
		return protocol.ChatMessage{}, context.Canceled
	}
	if errors.Is(err, provider.ErrMissingCredential) {
		err = ErrConfigMissing
	}
	s.logger.Error("chat send failed", "error", err)
	return s.failLocked(err), err
}

func (s *Shell) failLocked(err error) protocol.ChatMessage {
	s.err = err
	s.state = StateErrored
	idx := s.appendLocked(protocol.RoleSystem, errorPrefix+err.Error())
	return s.messages[idx]
}

func (s *Shell) appendLocked(role protocol.Role, text string) int {
	prefix := string(role)
	if role == protocol.RoleSystem {
		prefix = "error"
	}
	s.messages = append(s.messages, protocol.ChatMessage{
		ID:        prefix + "-" + uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
	})
	return len(s.messages) - 1
}

// Messages returns a copy of the conversation log.
func (s *Shell) Messages() []protocol.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ChatMessage(nil), s.messages...)
}

// State returns the current send-cycle state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsLoading reports whether a send is in flight.
func (s *Shell) IsLoading() bool {
	st := s.State()
	return st == StateSending || st == StateStreaming
}

// Snapshot returns state, loading flag, error and log in one read.
func (s *Shell) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:     s.state.String(),
		IsLoading: s.state == StateSending || s.state == StateStreaming,
		Messages:  append([]protocol.ChatMessage(nil), s.messages...),
	}
	if s.err != nil {
		snap.Error = errorPrefix + s.err.Error()
	}
	return snap
}

// Close cancels any in-flight send and rejects further sends.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.closed = true
	if s.state == StateSending || s.state == StateStreaming {
		s.state = StateIdle
	}
}
