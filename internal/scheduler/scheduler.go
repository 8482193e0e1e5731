// Package scheduler runs automatic service requests on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/river-app/river/pkg/protocol"
)

// Frequency is how often an automatic service runs.
type Frequency string

const (
	Weekly    Frequency = "Weekly"
	TwiceWeek Frequency = "Twice-Week"
	BiWeekly  Frequency = "Bi-Weekly"
)

// Cron specs for each frequency. Deliveries go out at 09:00 local time.
var specs = map[Frequency]string{
	Weekly:    "0 9 * * 1",
	TwiceWeek: "0 9 * * 1,4",
	BiWeekly:  "@every 336h",
}

// Frequencies lists the frequencies each service accepts.
var Frequencies = map[protocol.ServiceKind][]Frequency{
	protocol.ServiceRefill: {Weekly, TwiceWeek},
	protocol.ServicePickup: {Weekly, BiWeekly},
}

// RequestFunc is called when a service's schedule fires.
type RequestFunc func(service protocol.ServiceKind)

// Schedule is the automatic-service setting for one service.
type Schedule struct {
	Service   protocol.ServiceKind `json:"service"`
	Enabled   bool                 `json:"enabled"`
	Frequency Frequency            `json:"frequency"`
	Spec      string               `json:"spec,omitempty"`
	Next      *time.Time           `json:"next,omitempty"`
}

type job struct {
	schedule Schedule
	entry    cron.EntryID
}

// Scheduler manages cron-based automatic service requests.
type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	jobs      map[protocol.ServiceKind]*job
	requestFn RequestFunc
	logger    *slog.Logger
}

// New creates a new scheduler.
func New(requestFn RequestFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		jobs:      make(map[protocol.ServiceKind]*job),
		requestFn: requestFn,
		logger:    logger,
	}
}

// Start begins the cron scheduler. Blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// SetService replaces the automatic schedule for service. A disabled
// service keeps its frequency but has no cron entry.
func (s *Scheduler) SetService(service protocol.ServiceKind, enabled bool, freq Frequency) error {
	allowed, ok := Frequencies[service]
	if !ok {
		return fmt.Errorf("scheduler: unknown service %q", service)
	}
	if !slices.Contains(allowed, freq) {
		return fmt.Errorf("scheduler: frequency %q not available for %s (want one of %v)", freq, service, allowed)
	}
	spec := ""
	if enabled {
		spec = specs[freq]
	}
	return s.schedule(service, freq, spec)
}

func (s *Scheduler) schedule(service protocol.ServiceKind, freq Frequency, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := &job{schedule: Schedule{Service: service, Frequency: freq, Enabled: spec != "", Spec: spec}}
	if spec != "" {
		id, err := s.cron.AddFunc(spec, func() {
			s.logger.Info("cron fired", "service", service)
			s.requestFn(service)
		})
		if err != nil {
			return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
		}
		j.entry = id
	}

	if old, ok := s.jobs[service]; ok && old.entry != 0 {
		s.cron.Remove(old.entry)
	}
	s.jobs[service] = j
	s.logger.Info("schedule updated", "service", service, "enabled", j.schedule.Enabled, "frequency", freq)
	return nil
}

// Services returns every configured schedule ordered by service.
func (s *Scheduler) Services() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Schedule, 0, len(s.jobs))
	for _, j := range s.jobs {
		sc := j.schedule
		if j.entry != 0 {
			if next := s.cron.Entry(j.entry).Next; !next.IsZero() {
				sc.Next = &next
			}
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Service < out[k].Service })
	return out
}

// JobCount returns the number of enabled schedules.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, j := range s.jobs {
		if j.entry != 0 {
			total++
		}
	}
	return total
}
