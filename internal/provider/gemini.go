package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/river-app/river/pkg/protocol"
)

// GeminiProvider implements Provider for the Google Generative Language API.
type GeminiProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// GeminiOption configures a GeminiProvider.
type GeminiOption func(*GeminiProvider)

// WithGeminiBaseURL sets a custom API base URL.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(p *GeminiProvider) { p.baseURL = url }
}

// WithGeminiModel sets the default model.
func WithGeminiModel(model string) GeminiOption {
	return func(p *GeminiProvider) { p.model = model }
}

// NewGemini creates a new Gemini provider.
func NewGemini(apiKey string, opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: "https://generativelanguage.googleapis.com",
		apiKey:  apiKey,
		model:   "gemini-2.5-flash",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Stream(ctx context.Context, req protocol.ChatRequest) (*Stream, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredential
	}
	model := req.Model
	if model == "" {
		model = p.model
	}

	body := geminiRequest{Contents: toGeminiContents(req.History)}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.GenerationConfig = &geminiGenerationConfig{}
		if req.MaxTokens > 0 {
			body.GenerationConfig.MaxOutputTokens = req.MaxTokens
		}
		if req.Temperature > 0 {
			body.GenerationConfig.Temperature = &req.Temperature
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", p.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	return doStream(p.client, httpReq, p.Name(), decodeGeminiEvent)
}

// --- Gemini wire format types ---

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiChunk struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// toGeminiContents drops system turns; Gemini takes those as systemInstruction.
func toGeminiContents(turns []protocol.Turn) []geminiContent {
	out := make([]geminiContent, 0, len(turns))
	for _, t := range turns {
		if t.Role == protocol.RoleSystem {
			continue
		}
		out = append(out, geminiContent{
			Role:  string(t.Role),
			Parts: []geminiPart{{Text: t.Text}},
		})
	}
	return out
}

func decodeGeminiEvent(_ string, data []byte) (string, bool, error) {
	var chunk geminiChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false, fmt.Errorf("gemini: decode chunk: %w", err)
	}
	if chunk.Error != nil {
		return "", false, fmt.Errorf("gemini: stream error %d: %s", chunk.Error.Code, chunk.Error.Message)
	}
	var text string
	for _, c := range chunk.Candidates {
		for _, part := range c.Content.Parts {
			text += part.Text
		}
	}
	return text, false, nil
}
