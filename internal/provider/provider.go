package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/river-app/river/pkg/protocol"
)

// ErrMissingCredential is returned when a provider is built without an API key.
var ErrMissingCredential = errors.New("API key is missing. Please ensure it's configured in your environment.")

// Provider is the abstraction over streaming generative chat APIs.
type Provider interface {
	// Stream opens a streaming completion for the conversation in req.
	// The caller must Close the returned stream.
	Stream(ctx context.Context, req protocol.ChatRequest) (*Stream, error)
	Name() string
}

// APIError is a non-200 response from a provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error (status %d): %s", e.Provider, e.Status, e.Body)
}

// Collect drains s and returns the concatenated text.
func Collect(s *Stream) (string, error) {
	defer s.Close()
	var text string
	for {
		frag, err := s.Next()
		if err == io.EOF {
			return text, nil
		}
		if err != nil {
			return text, err
		}
		text += frag
	}
}

// doStream sends an HTTP request and wraps a 200 response body in a Stream.
func doStream(client *http.Client, req *http.Request, name string, decode DecodeFunc) (*Stream, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &APIError{Provider: name, Status: resp.StatusCode, Body: string(body)}
	}
	return NewStream(resp.Body, decode), nil
}
