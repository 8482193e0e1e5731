// Package voice runs spoken conversations: capture speech, transcribe it,
// send it to the assistant and speak the reply.
package voice

import (
	"context"
	"errors"

	"github.com/river-app/river/pkg/protocol"
)

var (
	// ErrBusy is returned when listening is requested outside the idle mode.
	ErrBusy = errors.New("voice: conversation is busy")
	// ErrNotListening is returned when audio arrives outside the listening mode.
	ErrNotListening = errors.New("voice: not listening")
	// ErrRecognitionUnsupported means no speech recognizer is configured.
	ErrRecognitionUnsupported = errors.New("Speech recognition is not supported.")
)

// Transcript is recognized speech. Interim results may be revised; final
// results are appended.
type Transcript struct {
	Text  string
	Final bool
}

// Capture is one listening session. Events is closed once Stop returns.
type Capture interface {
	Write(audio []byte) (int, error)
	Events() <-chan Transcript
	Stop() error
}

// Recognizer starts speech captures.
type Recognizer interface {
	Start(ctx context.Context) (Capture, error)
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, v protocol.Voice) ([]byte, error)
}

// Player plays audio and returns when playback ends.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Sender is a non-streaming chat exchange, such as *provider.Session.
type Sender interface {
	Send(ctx context.Context, text string) (string, error)
}
