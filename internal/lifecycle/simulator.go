package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/river-app/river/internal/notify"
	"github.com/river-app/river/pkg/protocol"
)

// ErrClosed is returned by RequestNow after Close.
var ErrClosed = errors.New("lifecycle: simulator closed")

const notifyTimeout = 15 * time.Second

// Options configures a Simulator.
type Options struct {
	Clock    Clock
	Notifier notify.Notifier
	Logger   *slog.Logger
	// OnChange runs after every stage transition, including the request.
	OnChange func(protocol.Ticket)
	// OnComplete runs once when a ticket reaches the completed stage.
	OnComplete func(protocol.Ticket)
}

// Simulator owns the single active ticket for one service kind. A new
// request supersedes the previous ticket.
type Simulator struct {
	profile    Profile
	clock      Clock
	notifier   notify.Notifier
	logger     *slog.Logger
	onChange   func(protocol.Ticket)
	onComplete func(protocol.Ticket)

	mu     sync.Mutex
	ticket *protocol.Ticket
	gen    uint64
	timers []Timer
	closed bool
}

// New creates a Simulator for profile.
func New(profile Profile, opts Options) *Simulator {
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Simulator{
		profile:    profile,
		clock:      opts.Clock,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		onChange:   opts.OnChange,
		onComplete: opts.OnComplete,
	}
}

// Kind returns the service kind this simulator handles.
func (s *Simulator) Kind() protocol.ServiceKind { return s.profile.Kind }

// Profile returns the timings and texts this simulator uses.
func (s *Simulator) Profile() Profile { return s.profile }

// RequestNow starts a new ticket at the requested stage and schedules its
// transitions. Timers still pending for a previous ticket are stopped.
func (s *Simulator) RequestNow() (protocol.Ticket, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return protocol.Ticket{}, ErrClosed
	}

	s.stopTimersLocked()
	s.gen++
	gen := s.gen

	t := &protocol.Ticket{
		ID:          shortuuid.New(),
		Kind:        s.profile.Kind,
		Stage:       protocol.StageRequested,
		RequestedAt: s.clock.Now(),
		Unit:        s.profile.Unit,
	}
	s.ticket = t
	s.timers = append(s.timers,
		s.clock.AfterFunc(s.profile.IntermediateAfter, func() { s.advance(gen, s.profile.Intermediate) }),
		s.clock.AfterFunc(s.profile.CompleteAfter, func() { s.advance(gen, protocol.StageCompleted) }),
	)
	snapshot := t.Clone()
	s.mu.Unlock()

	s.logger.Info("service requested", "kind", snapshot.Kind, "ticket", snapshot.ID)
	s.emit(snapshot)
	return snapshot, nil
}

// advance moves the ticket of generation gen to stage. Transitions for a
// superseded generation, or that would not move the ticket forward, are
// ignored.
func (s *Simulator) advance(gen uint64, stage protocol.Stage) {
	s.mu.Lock()
	if gen != s.gen || s.ticket == nil || s.closed {
		s.mu.Unlock()
		s.logger.Debug("stale transition ignored", "kind", s.profile.Kind, "stage", stage)
		return
	}
	t := s.ticket
	if stage.Rank() <= t.Stage.Rank() {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	t.Stage = stage
	if stage == protocol.StageCompleted {
		amount := s.profile.Amount
		t.CompletedAt = &now
		t.ResultAmount = &amount
		s.timers = nil
	} else {
		t.IntermediateAt = &now
	}
	snapshot := t.Clone()
	s.mu.Unlock()

	s.logger.Info("ticket advanced", "kind", snapshot.Kind, "ticket", snapshot.ID, "stage", snapshot.Stage)
	// The result is credited before observers hear about it; sinks may be slow.
	if stage == protocol.StageCompleted && s.onComplete != nil {
		s.onComplete(snapshot)
	}
	s.emit(snapshot)
}

func (s *Simulator) emit(t protocol.Ticket) {
	if s.onChange != nil {
		s.onChange(t)
	}
	var amount float64
	if t.ResultAmount != nil {
		amount = *t.ResultAmount
	}
	text := s.profile.text(t.Stage, amount)
	if text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	at := t.RequestedAt
	switch {
	case t.CompletedAt != nil:
		at = *t.CompletedAt
	case t.IntermediateAt != nil:
		at = *t.IntermediateAt
	}
	if err := s.notifier.Notify(ctx, notify.New(string(t.Kind), text, at)); err != nil {
		s.logger.Warn("notification delivery failed", "kind", t.Kind, "ticket", t.ID, "error", err)
	}
}

// Current returns a copy of the active ticket.
func (s *Simulator) Current() (protocol.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticket == nil {
		return protocol.Ticket{}, false
	}
	return s.ticket.Clone(), true
}

// Close stops pending timers. The active ticket stays readable but no
// longer advances.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
	s.closed = true
}

func (s *Simulator) stopTimersLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}
