package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/river-app/river/pkg/protocol"
)

func writeSSE(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\n\n", l)
	}
}

func TestOpenAIStream_Fragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing auth header")
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("expected stream=true")
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %s", req.Model)
		}
		if len(req.Messages) != 3 || req.Messages[0].Role != "system" || req.Messages[2].Role != "assistant" {
			t.Errorf("messages = %+v", req.Messages)
		}

		writeSSE(w,
			`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"delta":{"content":"lo!"}}]}`,
			`data: [DONE]`,
		)
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", WithBaseURL(srv.URL))
	s, err := p.Stream(context.Background(), protocol.ChatRequest{
		SystemInstruction: "be nice",
		History: []protocol.Turn{
			{Role: protocol.RoleUser, Text: "Hi"},
			{Role: protocol.RoleModel, Text: "Hey"},
		},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	text, err := Collect(s)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if text != "Hello!" {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAIStream_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", WithBaseURL(srv.URL))
	_, err := p.Stream(context.Background(), protocol.ChatRequest{
		History: []protocol.Turn{{Role: protocol.RoleUser, Text: "Hi"}},
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", apiErr.Status)
	}
}

func TestOpenAIStream_MissingKey(t *testing.T) {
	p := NewOpenAI("")
	_, err := p.Stream(context.Background(), protocol.ChatRequest{})
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("err = %v, want ErrMissingCredential", err)
	}
}

func TestOpenAIStream_BadChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, `data: {"choices":[{"delta":{"content":"ok"}}]}`, `data: {not json`)
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", WithBaseURL(srv.URL))
	s, err := p.Stream(context.Background(), protocol.ChatRequest{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	text, err := Collect(s)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if text != "ok" {
		t.Errorf("partial text = %q", text)
	}
}
