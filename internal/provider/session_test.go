package provider

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/river-app/river/pkg/protocol"
)

// scriptedProvider replays canned fragments as an SSE body.
type scriptedProvider struct {
	fragments []string
	err       error
	requests  []protocol.ChatRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(_ context.Context, req protocol.ChatRequest) (*Stream, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	var b strings.Builder
	for _, f := range p.fragments {
		b.WriteString("data: " + f + "\n\n")
	}
	return NewStream(io.NopCloser(strings.NewReader(b.String())), PlainText), nil
}

func TestSession_CommitsAfterCompletion(t *testing.T) {
	p := &scriptedProvider{fragments: []string{"Hi", "there"}}
	s := NewSession(p, "be brief", "m1")

	r, err := s.SendStream(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendStream: %v", err)
	}
	if len(s.History()) != 0 {
		t.Error("history committed before stream end")
	}
	for {
		if _, err := r.Next(); err != nil {
			if err != io.EOF {
				t.Fatalf("Next: %v", err)
			}
			break
		}
	}
	r.Close()

	h := s.History()
	if len(h) != 2 || h[0].Text != "hello" || h[1].Text != "Hithere" || h[1].Role != protocol.RoleModel {
		t.Errorf("history = %+v", h)
	}

	if _, err := s.Send(context.Background(), "again"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	last := p.requests[len(p.requests)-1]
	if len(last.History) != 3 || last.SystemInstruction != "be brief" || last.Model != "m1" {
		t.Errorf("second request = %+v", last)
	}
}

func TestSession_FailedSendLeavesHistory(t *testing.T) {
	p := &scriptedProvider{err: errors.New("boom")}
	s := NewSession(p, "", "")
	if _, err := s.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if len(s.History()) != 0 {
		t.Errorf("history = %+v", s.History())
	}
}
