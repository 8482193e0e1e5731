package inbound

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/river-app/river/internal/chat"
	"github.com/river-app/river/internal/connector"
	"github.com/river-app/river/internal/lifecycle"
	"github.com/river-app/river/pkg/protocol"
)

type fakeChats struct {
	sent   []string
	ids    []string
	resets []string
	reply  protocol.ChatMessage
	err    error
}

func (f *fakeChats) Send(_ context.Context, id, text string, _ chat.UpdateFunc) (protocol.ChatMessage, error) {
	f.ids = append(f.ids, id)
	f.sent = append(f.sent, text)
	return f.reply, f.err
}

func (f *fakeChats) Reset(id string) { f.resets = append(f.resets, id) }

type fakeService struct {
	profile  lifecycle.Profile
	requests int
	current  *protocol.Ticket
	err      error
}

func (f *fakeService) Profile() lifecycle.Profile { return f.profile }

func (f *fakeService) RequestNow() (protocol.Ticket, error) {
	if f.err != nil {
		return protocol.Ticket{}, f.err
	}
	f.requests++
	t := protocol.Ticket{ID: "t1", Kind: f.profile.Kind, Stage: protocol.StageRequested, RequestedAt: time.Now()}
	f.current = &t
	return t, nil
}

func (f *fakeService) Current() (protocol.Ticket, bool) {
	if f.current == nil {
		return protocol.Ticket{}, false
	}
	return *f.current, true
}

func msg(text string) connector.InboundMessage {
	return connector.InboundMessage{Channel: "telegram", SenderID: "1", ChatID: "42", Content: text}
}

func TestHandle_ChatText(t *testing.T) {
	chats := &fakeChats{reply: protocol.ChatMessage{Role: protocol.RoleModel, Text: "Hi! I'm River."}}
	r := NewRouter(chats, nil)

	got, err := r.Handle(context.Background(), msg("  hello  "))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got != "Hi! I'm River." {
		t.Errorf("reply = %q", got)
	}
	if len(chats.sent) != 1 || chats.sent[0] != "hello" || chats.ids[0] != "telegram:42" {
		t.Errorf("sent = %v to %v", chats.sent, chats.ids)
	}
}

func TestHandle_Blank(t *testing.T) {
	chats := &fakeChats{}
	r := NewRouter(chats, nil)
	got, err := r.Handle(context.Background(), msg("   "))
	if got != "" || err != nil || len(chats.sent) != 0 {
		t.Errorf("blank message handled: %q %v", got, err)
	}
}

func TestHandle_New(t *testing.T) {
	chats := &fakeChats{}
	r := NewRouter(chats, nil)

	got, _ := r.Handle(context.Background(), msg("/new@river_bot"))
	if len(chats.resets) != 1 || chats.resets[0] != "telegram:42" {
		t.Fatalf("resets = %v", chats.resets)
	}
	if !strings.Contains(got, "new conversation") {
		t.Errorf("reply = %q", got)
	}
}

func TestHandle_RequestServices(t *testing.T) {
	refill := &fakeService{profile: lifecycle.RefillProfile()}
	pickup := &fakeService{profile: lifecycle.PickupProfile()}
	r := NewRouter(&fakeChats{}, nil)
	r.AddService(refill)
	r.AddService(pickup)

	got, err := r.Handle(context.Background(), msg("/refill"))
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if refill.requests != 1 || !strings.HasPrefix(got, "Refill request sent!") {
		t.Errorf("refill reply = %q, requests = %d", got, refill.requests)
	}

	got, _ = r.Handle(context.Background(), msg("/laundry"))
	if pickup.requests != 1 || !strings.HasPrefix(got, "Laundry pickup requested!") {
		t.Errorf("pickup reply = %q, requests = %d", got, pickup.requests)
	}
}

func TestHandle_RequestUnavailable(t *testing.T) {
	r := NewRouter(&fakeChats{}, nil)
	got, err := r.Handle(context.Background(), msg("/pickup"))
	if err != nil || !strings.Contains(got, "aren't available") {
		t.Errorf("reply = %q, err = %v", got, err)
	}
}

func TestHandle_RequestFails(t *testing.T) {
	r := NewRouter(&fakeChats{}, nil)
	r.AddService(&fakeService{profile: lifecycle.RefillProfile(), err: lifecycle.ErrClosed})

	_, err := r.Handle(context.Background(), msg("/refill"))
	if !errors.Is(err, lifecycle.ErrClosed) {
		t.Errorf("err = %v", err)
	}
}

func TestHandle_Status(t *testing.T) {
	refill := &fakeService{profile: lifecycle.RefillProfile()}
	refill.RequestNow()
	refill.current.Stage = protocol.StageInProgress

	r := NewRouter(&fakeChats{}, nil)
	r.AddService(refill)
	r.AddService(&fakeService{profile: lifecycle.PickupProfile()})
	r.Gauges = func() []protocol.GaugeStatus {
		return []protocol.GaugeStatus{{Name: "water", Percentage: 65, Level: "Medium", AmountText: "260L / 400L"}}
	}

	got, _ := r.Handle(context.Background(), msg("/status"))
	for _, want := range []string{"Water: 260L / 400L (65%, Medium)", "Refill: in progress", "Pickup: no requests yet"} {
		if !strings.Contains(got, want) {
			t.Errorf("status missing %q:\n%s", want, got)
		}
	}
}

func TestHandle_UnknownCommandChats(t *testing.T) {
	chats := &fakeChats{reply: protocol.ChatMessage{Text: "About 260 liters."}}
	r := NewRouter(chats, nil)

	got, _ := r.Handle(context.Background(), msg("/river how much water is left?"))
	if got != "About 260 liters." || chats.sent[0] != "how much water is left?" {
		t.Errorf("reply = %q, sent = %v", got, chats.sent)
	}

	got, _ = r.Handle(context.Background(), msg("/river"))
	if got != HelpText {
		t.Errorf("bare unknown command reply = %q", got)
	}
}

func TestHandle_Busy(t *testing.T) {
	r := NewRouter(&fakeChats{err: chat.ErrBusy}, nil)
	got, err := r.Handle(context.Background(), msg("hello"))
	if !errors.Is(err, chat.ErrBusy) || got != busyReply {
		t.Errorf("reply = %q, err = %v", got, err)
	}
}

func TestHandle_FailureShowsSystemEntry(t *testing.T) {
	entry := protocol.ChatMessage{Role: protocol.RoleSystem, Text: "Sorry, I encountered an issue. boom"}
	r := NewRouter(&fakeChats{reply: entry, err: errors.New("boom")}, nil)

	got, err := r.Handle(context.Background(), msg("hello"))
	if err == nil || got != entry.Text {
		t.Errorf("reply = %q, err = %v", got, err)
	}
}
