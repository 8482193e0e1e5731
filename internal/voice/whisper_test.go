package voice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/river-app/river/pkg/protocol"
)

func TestWhisper_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing auth header")
		}
		if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "multipart/form-data") {
			t.Errorf("expected multipart form, got %q", ct)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if model := r.FormValue("model"); model != "whisper-large-v3-turbo" {
			t.Errorf("model = %q", model)
		}
		if format := r.FormValue("response_format"); format != "json" {
			t.Errorf("response_format = %q", format)
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		data, _ := io.ReadAll(f)
		if fh.Filename != "speech.webm" || string(data) != "chunk1chunk2" {
			t.Errorf("file = %q (%q)", fh.Filename, data)
		}
		json.NewEncoder(w).Encode(whisperResponse{Text: "KaRiver, water refill ko po."})
	}))
	defer srv.Close()

	rec := NewWhisperRecognizer(NewWhisper(srv.URL, "test-key", ""))
	capture, err := rec.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	capture.Write([]byte("chunk1"))
	capture.Write([]byte("chunk2"))
	if err := capture.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	var got []Transcript
	for tr := range capture.Events() {
		got = append(got, tr)
	}
	if len(got) != 1 || !got[0].Final || got[0].Text != "KaRiver, water refill ko po." {
		t.Errorf("events = %+v", got)
	}
	if _, err := capture.Write([]byte("late")); err != ErrNotListening {
		t.Errorf("write after stop err = %v", err)
	}
}

func TestWhisper_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewWhisper(srv.URL, "k", "m").Transcribe(context.Background(), []byte("x"), "a.ogg")
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("err = %v", err)
	}
}

func TestWhisperRecognizer_NotConfigured(t *testing.T) {
	rec := NewWhisperRecognizer(NewWhisper("", "", ""))
	if _, err := rec.Start(context.Background()); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestWhisperCapture_EmptyAudio(t *testing.T) {
	rec := NewWhisperRecognizer(NewWhisper("http://unused.invalid", "k", ""))
	capture, _ := rec.Start(context.Background())
	if err := capture.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, ok := <-capture.Events(); ok {
		t.Error("expected closed channel with no events")
	}
}

func TestSpeechSynthesizer(t *testing.T) {
	var req speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tts-key" {
			t.Error("missing auth header")
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3mp3"))
	}))
	defer srv.Close()

	s := NewSpeechSynthesizer(srv.URL+"/v1/", "tts-key", "")
	audio, err := s.Synthesize(context.Background(), "Hello", protocol.VoiceMale)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3mp3" {
		t.Errorf("audio = %q", audio)
	}
	if req.Voice != "onyx" || req.Model != "tts-1" || req.Input != "Hello" || req.ResponseFormat != "mp3" {
		t.Errorf("request = %+v", req)
	}
	if VoiceName(protocol.VoiceFemale) != "nova" {
		t.Errorf("female voice = %q", VoiceName(protocol.VoiceFemale))
	}
}

func TestOutbox_PlayWaitsForAck(t *testing.T) {
	o := NewOutbox(time.Minute)
	if _, _, ok := o.Latest(); ok {
		t.Fatal("expected empty outbox")
	}

	done := make(chan error, 1)
	go func() { done <- o.Play(context.Background(), []byte("clip")) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, seq, ok := o.Latest(); ok && seq == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("clip never published")
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-done:
		t.Fatal("Play returned before ack")
	default:
	}

	o.Ack()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Play: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after ack")
	}
	clip, _, _ := o.Latest()
	if string(clip) != "clip" {
		t.Errorf("clip = %q", clip)
	}
}

func TestOutbox_PlayCancelled(t *testing.T) {
	o := NewOutbox(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.Play(ctx, []byte("x")); err != context.Canceled {
		t.Errorf("err = %v", err)
	}
}
