package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes riverctl against srv and returns combined output.
func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if srv != nil {
		args = append([]string{"--url", srv.URL}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, nil, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "riverctl dev") {
		t.Errorf("expected output to contain 'riverctl dev', got: %s", out)
	}
}

func TestHealthCmd_SendsKey(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	out, err := run(t, srv, "--key", "secret", "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if !strings.Contains(out, `"status":"ok"`) {
		t.Errorf("output = %q", out)
	}
}

func TestStatusCmd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/gauges", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name":"water","amount_text":"260L / 400L","percentage":65,"level":"Medium"}]`)
	})
	mux.HandleFunc("GET /api/refills/current", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","kind":"refill","stage":"in_progress","requested_at":"2025-03-01T09:00:00Z"}`)
	})
	mux.HandleFunc("GET /api/pickups/current", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no pickup requested yet"}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := run(t, srv, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"water", "260L / 400L", "65%", "in_progress", "pickup     none"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRefillCmd(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"abc","kind":"refill","stage":"requested"}`)
	}))
	defer srv.Close()

	out, err := run(t, srv, "refill")
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if method != "POST /api/refills" {
		t.Errorf("request = %q", method)
	}
	if !strings.Contains(out, "refill abc: requested") {
		t.Errorf("output = %q", out)
	}
}

func TestRefillCmd_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"lifecycle: simulator closed"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := run(t, srv, "refill")
	if err == nil || !strings.Contains(err.Error(), "HTTP 503") {
		t.Errorf("err = %v", err)
	}
}

func TestChatCmd_Streams(t *testing.T) {
	var sent map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/app/messages" || r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("request = %s %s", r.URL.Path, r.Header.Get("Accept"))
		}
		json.NewDecoder(r.Body).Decode(&sent)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: fragment\ndata: {\"text\":\"Hi \"}\n\n")
		fmt.Fprint(w, "event: fragment\ndata: {\"text\":\"there!\"}\n\n")
		fmt.Fprint(w, "event: done\ndata: {\"id\":\"m1\"}\n\n")
	}))
	defer srv.Close()

	out, err := run(t, srv, "chat", "how", "much", "water?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if sent["text"] != "how much water?" {
		t.Errorf("sent = %v", sent)
	}
	if !strings.Contains(out, "Hi there!") {
		t.Errorf("output = %q", out)
	}
}

func TestChatCmd_ErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: {\"error\":\"gemini: api error (status 500)\"}\n\n")
	}))
	defer srv.Close()

	_, err := run(t, srv, "chat", "hello")
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("err = %v", err)
	}
}

func TestPersonalitySet_SendsOnlyChangedFlags(t *testing.T) {
	var patch map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&patch)
		fmt.Fprint(w, `{"humor":"Low","voice":"Male","tone":"Friendly","language":"Auto-detect"}`)
	}))
	defer srv.Close()

	out, err := run(t, srv, "personality", "set", "--voice", "Male")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(patch) != 1 || patch["voice"] != "Male" {
		t.Errorf("patch = %v", patch)
	}
	if !strings.Contains(out, "voice:    Male") {
		t.Errorf("output = %q", out)
	}
}

func TestPersonalitySet_NothingToChange(t *testing.T) {
	if _, err := run(t, nil, "personality", "set"); err == nil {
		t.Error("expected error without flags")
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "river.yaml")
	os.WriteFile(good, []byte("app:\n  data_dir: ./data\napi:\n  port: 8080\n"), 0o644)

	out, err := run(t, nil, "config", "validate", good)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "config is valid") {
		t.Errorf("output = %q", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("api:\n  port: 70000\n"), 0o644)
	if _, err := run(t, nil, "config", "validate", bad); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestDecodeChatEvent(t *testing.T) {
	text, done, err := decodeChatEvent("fragment", []byte(`{"text":"Hi"}`))
	if text != "Hi" || done || err != nil {
		t.Errorf("fragment = %q %v %v", text, done, err)
	}
	if _, done, _ := decodeChatEvent("done", []byte(`{}`)); !done {
		t.Error("done event should end the stream")
	}
	if _, _, err := decodeChatEvent("error", []byte(`{"error":"boom"}`)); err == nil || err.Error() != "boom" {
		t.Errorf("error event = %v", err)
	}
}
