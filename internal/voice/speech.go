package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/river-app/river/pkg/protocol"
)

// SpeechSynthesizer calls an OpenAI-compatible /audio/speech endpoint.
type SpeechSynthesizer struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

// NewSpeechSynthesizer creates a synthesizer. Empty values use the OpenAI defaults.
func NewSpeechSynthesizer(baseURL, apiKey, model string) *SpeechSynthesizer {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "tts-1"
	}
	return &SpeechSynthesizer{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// VoiceName maps a personality voice to a speech API voice.
func VoiceName(v protocol.Voice) string {
	if v == protocol.VoiceMale {
		return "onyx"
	}
	return "nova"
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize returns mp3 audio for text.
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string, v protocol.Voice) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          s.Model,
		Input:          text,
		Voice:          VoiceName(v),
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech API error (status %d): %s", resp.StatusCode, string(audio))
	}
	return audio, nil
}
