package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/river-app/river/pkg/protocol"
)

func TestScheduleFires(t *testing.T) {
	var mu sync.Mutex
	var calls []protocol.ServiceKind

	sched := New(func(service protocol.ServiceKind) {
		mu.Lock()
		calls = append(calls, service)
		mu.Unlock()
	}, nil)

	if err := sched.schedule(protocol.ServiceRefill, Weekly, "@every 1s"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if sched.JobCount() != 1 {
		t.Errorf("JobCount = %d", sched.JobCount())
	}

	// Start cron and wait for it to fire
	sched.cron.Start()
	time.Sleep(1500 * time.Millisecond)
	sched.cron.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(calls) == 0 {
		t.Fatal("expected at least one call")
	}
	if calls[0] != protocol.ServiceRefill {
		t.Errorf("call = %q", calls[0])
	}
}

func TestSetService(t *testing.T) {
	sched := New(func(protocol.ServiceKind) {}, nil)

	if err := sched.SetService(protocol.ServiceRefill, true, TwiceWeek); err != nil {
		t.Fatalf("SetService: %v", err)
	}
	if err := sched.SetService(protocol.ServicePickup, true, BiWeekly); err != nil {
		t.Fatalf("SetService: %v", err)
	}
	if sched.JobCount() != 2 {
		t.Errorf("JobCount = %d", sched.JobCount())
	}

	// Replacing keeps one entry per service.
	sched.SetService(protocol.ServiceRefill, true, Weekly)
	if sched.JobCount() != 2 {
		t.Errorf("JobCount after replace = %d", sched.JobCount())
	}

	sched.SetService(protocol.ServicePickup, false, BiWeekly)
	if sched.JobCount() != 1 {
		t.Errorf("JobCount after disable = %d", sched.JobCount())
	}

	got := sched.Services()
	if len(got) != 2 {
		t.Fatalf("services = %+v", got)
	}
	if got[0].Service != protocol.ServicePickup || got[0].Enabled || got[0].Frequency != BiWeekly {
		t.Errorf("pickup = %+v", got[0])
	}
	if got[1].Service != protocol.ServiceRefill || !got[1].Enabled || got[1].Spec != "0 9 * * 1" {
		t.Errorf("refill = %+v", got[1])
	}
}

func TestSetService_Invalid(t *testing.T) {
	sched := New(func(protocol.ServiceKind) {}, nil)
	tests := []struct {
		name    string
		service protocol.ServiceKind
		freq    Frequency
	}{
		{"unknown service", "carwash", Weekly},
		{"bi-weekly refill", protocol.ServiceRefill, BiWeekly},
		{"twice-week pickup", protocol.ServicePickup, TwiceWeek},
		{"empty frequency", protocol.ServiceRefill, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sched.SetService(tt.service, true, tt.freq); err == nil {
				t.Error("expected error")
			}
		})
	}
	if sched.JobCount() != 0 {
		t.Errorf("JobCount = %d", sched.JobCount())
	}
}

func TestInvalidSchedule(t *testing.T) {
	sched := New(func(protocol.ServiceKind) {}, nil)
	if err := sched.schedule(protocol.ServiceRefill, Weekly, "invalid-cron"); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
