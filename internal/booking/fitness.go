package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/river-app/river/internal/notify"
	"github.com/river-app/river/pkg/protocol"
)

// Gyms lists the partner gyms.
var Gyms = []protocol.Gym{
	{
		ID: "gym-1", Name: "Flex Fitness", Location: "Makati Central", Rating: 4.8,
		Coaches: []protocol.Coach{
			{ID: "c1", Name: "John Carter", Specialty: "Strength Training"},
			{ID: "c2", Name: "Jane Doe", Specialty: "Yoga & Flexibility"},
		},
	},
	{
		ID: "gym-2", Name: "Iron Paradise", Location: "BGC, Taguig", Rating: 4.9,
		Coaches: []protocol.Coach{
			{ID: "c3", Name: "Coach Rex", Specialty: "Bodybuilding"},
		},
	},
}

// TrainingRequest is a session to book at the selected gym.
type TrainingRequest struct {
	CoachID string `json:"coach_id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// FitnessStatus is the selected gym and the booked sessions.
type FitnessStatus struct {
	Gym      *protocol.Gym              `json:"gym,omitempty"`
	Sessions []protocol.TrainingSession `json:"sessions"`
}

// Fitness tracks the partner gym and booked training sessions.
type Fitness struct {
	opts Options

	mu       sync.Mutex
	gym      *protocol.Gym
	sessions []protocol.TrainingSession
	lastID   int64
}

// NewFitness creates a Fitness with no gym selected.
func NewFitness(opts Options) *Fitness {
	return &Fitness{opts: opts.withDefaults()}
}

// Status returns the selected gym and sessions in booking order.
func (f *Fitness) Status() FitnessStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FitnessStatus{Sessions: append([]protocol.TrainingSession{}, f.sessions...)}
	if f.gym != nil {
		g := *f.gym
		st.Gym = &g
	}
	return st
}

// SelectGym makes the gym with id the partner gym. Sessions already booked
// are kept.
func (f *Fitness) SelectGym(ctx context.Context, id string) (protocol.Gym, error) {
	gym, ok := findGym(id)
	if !ok {
		return protocol.Gym{}, fmt.Errorf("%w: %q", ErrUnknownGym, id)
	}
	f.mu.Lock()
	f.gym = &gym
	f.mu.Unlock()

	f.opts.Logger.Info("partner gym selected", "gym", gym.ID)
	f.notify(ctx, gym.Name+" selected as your partner gym.")
	return gym, nil
}

// Schedule books a session with a coach of the selected gym. Session IDs
// are "ts-" followed by the booking time in Unix milliseconds.
func (f *Fitness) Schedule(ctx context.Context, req TrainingRequest) (protocol.TrainingSession, error) {
	if req.CoachID == "" || strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		return protocol.TrainingSession{}, ErrIncomplete
	}

	f.mu.Lock()
	if f.gym == nil {
		f.mu.Unlock()
		return protocol.TrainingSession{}, ErrNoGym
	}
	coach, ok := findCoach(*f.gym, req.CoachID)
	if !ok {
		f.mu.Unlock()
		return protocol.TrainingSession{}, fmt.Errorf("%w: %q", ErrUnknownCoach, req.CoachID)
	}
	// Two bookings in the same millisecond still get distinct IDs.
	id := max(f.opts.Now().UnixMilli(), f.lastID+1)
	f.lastID = id
	session := protocol.TrainingSession{
		ID:      fmt.Sprintf("ts-%d", id),
		GymID:   f.gym.ID,
		CoachID: coach.ID,
		Date:    strings.TrimSpace(req.Date),
		Time:    strings.TrimSpace(req.Time),
	}
	f.sessions = append(f.sessions, session)
	f.mu.Unlock()

	f.opts.Logger.Info("training scheduled", "session", session.ID, "coach", coach.ID)
	f.notify(ctx, "Training with "+coach.Name+" scheduled!")
	return session, nil
}

func (f *Fitness) notify(ctx context.Context, text string) {
	if err := f.opts.Notifier.Notify(ctx, notify.New("fitness", text, f.opts.Now())); err != nil {
		f.opts.Logger.Warn("notification delivery failed", "source", "fitness", "error", err)
	}
}

func findGym(id string) (protocol.Gym, bool) {
	for _, g := range Gyms {
		if g.ID == id {
			return g, true
		}
	}
	return protocol.Gym{}, false
}

func findCoach(g protocol.Gym, id string) (protocol.Coach, bool) {
	for _, c := range g.Coaches {
		if c.ID == id {
			return c, true
		}
	}
	return protocol.Coach{}, false
}
