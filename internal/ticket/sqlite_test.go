package ticket

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/river-app/river/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func requested(id string, kind protocol.ServiceKind, at time.Time) protocol.Ticket {
	return protocol.Ticket{ID: id, Kind: kind, Stage: protocol.StageRequested, RequestedAt: at, Unit: "L"}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save(requested("t-001", protocol.ServiceRefill, base)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get("t-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != protocol.ServiceRefill || got.Stage != protocol.StageRequested || got.Unit != "L" {
		t.Errorf("got %+v", got)
	}
	if !got.RequestedAt.Equal(base) {
		t.Errorf("requested_at = %v", got.RequestedAt)
	}
	if got.IntermediateAt != nil || got.CompletedAt != nil || got.ResultAmount != nil {
		t.Errorf("expected unset optional fields, got %+v", got)
	}
}

func TestSave_UpsertAdvancesStage(t *testing.T) {
	s := newTestStore(t)
	ticket := requested("t-002", protocol.ServiceRefill, base)
	s.Save(ticket)

	mid := base.Add(5 * time.Second)
	done := base.Add(12 * time.Second)
	amount := 60.0
	ticket.Stage = protocol.StageCompleted
	ticket.IntermediateAt = &mid
	ticket.CompletedAt = &done
	ticket.ResultAmount = &amount
	if err := s.Save(ticket); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := s.Get("t-002")
	if got.Stage != protocol.StageCompleted || got.ResultAmount == nil || *got.ResultAmount != 60 {
		t.Errorf("got %+v", got)
	}
	if !got.CompletedAt.Equal(done) || !got.IntermediateAt.Equal(mid) {
		t.Errorf("timestamps = %v, %v", got.IntermediateAt, got.CompletedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListAndCount(t *testing.T) {
	s := newTestStore(t)
	s.Save(requested("r1", protocol.ServiceRefill, base))
	s.Save(requested("r2", protocol.ServiceRefill, base.Add(time.Hour)))
	s.Save(requested("p1", protocol.ServicePickup, base.Add(2*time.Hour)))

	all, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "p1" {
		t.Errorf("all = %+v", all)
	}

	refills, _ := s.List(Filter{Kind: protocol.ServiceRefill, Limit: 1})
	if len(refills) != 1 || refills[0].ID != "r2" {
		t.Errorf("refills = %+v", refills)
	}

	n, err := s.Count(Filter{Kind: protocol.ServiceRefill, Stage: protocol.StageRequested})
	if err != nil || n != 2 {
		t.Errorf("count = %d, %v", n, err)
	}
	if n, _ := s.Count(Filter{Stage: protocol.StageCompleted}); n != 0 {
		t.Errorf("completed count = %d", n)
	}
}

func TestList_NewestFirstWithinSecond(t *testing.T) {
	s := newTestStore(t)
	older := base.Add(100 * time.Millisecond)
	newer := base.Add(400*time.Millisecond + time.Nanosecond)
	s.Save(requested("older", protocol.ServiceRefill, older))
	s.Save(requested("newer", protocol.ServiceRefill, newer))

	got, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "newer" || got[1].ID != "older" {
		t.Fatalf("order = %v, %v", got[0].ID, got[1].ID)
	}
	if !got[0].RequestedAt.Equal(newer) {
		t.Errorf("requested_at = %v, want %v", got[0].RequestedAt, newer)
	}
}

func TestList_SameInstantLatestSavedFirst(t *testing.T) {
	s := newTestStore(t)
	s.Save(requested("first", protocol.ServicePickup, base))
	s.Save(requested("second", protocol.ServicePickup, base))

	got, _ := s.List(Filter{})
	if len(got) != 2 || got[0].ID != "second" {
		t.Errorf("got %+v", got)
	}
}
