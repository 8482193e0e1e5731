package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

const (
	defaultWhisperURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	defaultWhisperModel = "whisper-large-v3-turbo"
	maxAudioBytes       = 25 << 20
)

// Whisper transcribes audio with a Whisper-compatible API (OpenAI, Groq, etc.).
type Whisper struct {
	URL    string
	APIKey string
	Model  string
	Client *http.Client
}

// NewWhisper creates a transcriber. Empty url and model use the Groq defaults.
func NewWhisper(url, apiKey, model string) *Whisper {
	if url == "" {
		url = defaultWhisperURL
	}
	if model == "" {
		model = defaultWhisperModel
	}
	return &Whisper{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Transcribe uploads audio as a multipart form and returns the text.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	mw.WriteField("model", w.Model)
	mw.WriteField("response_format", "json")
	mw.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.APIKey)

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result whisperResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse whisper response: %w", err)
	}
	return result.Text, nil
}

type whisperResponse struct {
	Text string `json:"text"`
}

// WhisperRecognizer buffers captured audio and transcribes it in one
// request when the capture stops.
type WhisperRecognizer struct {
	Whisper  *Whisper
	Filename string // sent as the upload name; the extension tells the API the format
}

// NewWhisperRecognizer creates a recognizer for webm audio.
func NewWhisperRecognizer(w *Whisper) *WhisperRecognizer {
	return &WhisperRecognizer{Whisper: w, Filename: "speech.webm"}
}

func (r *WhisperRecognizer) Start(ctx context.Context) (Capture, error) {
	if r.Whisper == nil || r.Whisper.APIKey == "" {
		return nil, fmt.Errorf("voice transcription not configured")
	}
	return &whisperCapture{
		ctx:      ctx,
		whisper:  r.Whisper,
		filename: r.Filename,
		events:   make(chan Transcript, 1),
	}, nil
}

type whisperCapture struct {
	ctx      context.Context
	whisper  *Whisper
	filename string
	events   chan Transcript

	mu      sync.Mutex
	buf     bytes.Buffer
	stopped bool
}

func (c *whisperCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0, ErrNotListening
	}
	if c.buf.Len()+len(p) > maxAudioBytes {
		return 0, fmt.Errorf("voice: audio exceeds %d bytes", maxAudioBytes)
	}
	return c.buf.Write(p)
}

func (c *whisperCapture) Events() <-chan Transcript { return c.events }

func (c *whisperCapture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	audio := append([]byte(nil), c.buf.Bytes()...)
	c.mu.Unlock()

	defer close(c.events)
	if len(audio) == 0 {
		return nil
	}
	text, err := c.whisper.Transcribe(c.ctx, audio, c.filename)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	c.events <- Transcript{Text: text, Final: true}
	return nil
}
