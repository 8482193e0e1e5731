package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/river-app/river/pkg/protocol"
)

// Mode is the conversation's position in the listen/speak cycle.
type Mode int

const (
	ModeIdle Mode = iota
	ModeListening
	ModeSpeaking
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeListening:
		return "listening"
	case ModeSpeaking:
		return "speaking"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	respondFailedText = "Sorry, I had trouble responding."
	speakFailedText   = "Sorry, I had trouble speaking."
	startFailedText   = "Could not start listening. Please check microphone permissions."
	missingKeyText    = "API key is missing."
)

// Options configures a Conversation. A nil Sender means the chat
// credential is missing; a nil Recognizer means speech input is unavailable.
type Options struct {
	Recognizer  Recognizer
	Sender      Sender
	Synthesizer Synthesizer
	Player      Player
	// Voice returns the voice to speak with. Defaults to Female.
	Voice func() protocol.Voice
	// OnEnd runs when a cycle finishes speaking, or ends with nothing to say.
	OnEnd  func()
	Logger *slog.Logger
}

// Status is a snapshot of a Conversation.
type Status struct {
	Mode       string `json:"mode"`
	Transcript string `json:"transcript"`
	Response   string `json:"response"`
	Error      string `json:"error,omitempty"`
}

// Conversation is a single-user voice session. Exactly one of idle,
// listening or speaking holds at any time.
type Conversation struct {
	opts   Options
	logger *slog.Logger

	base   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	mode       Mode
	gen        uint64
	cycleCtx   context.Context
	cycle      context.CancelFunc
	capture    Capture
	collected  chan string
	transcript string
	response   string
	errText    string
}

// New creates a Conversation.
func New(opts Options) *Conversation {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Voice == nil {
		opts.Voice = func() protocol.Voice { return protocol.VoiceFemale }
	}
	base, cancel := context.WithCancel(context.Background())
	c := &Conversation{opts: opts, logger: opts.Logger, base: base, cancel: cancel}
	switch {
	case opts.Sender == nil:
		c.errText = missingKeyText
	case opts.Recognizer == nil:
		c.errText = ErrRecognitionUnsupported.Error()
	}
	return c
}

// StartListening opens a capture. It is a no-op returning ErrBusy unless
// the conversation is idle.
func (c *Conversation) StartListening() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.Recognizer == nil {
		c.errText = ErrRecognitionUnsupported.Error()
		return ErrRecognitionUnsupported
	}
	if c.mode != ModeIdle {
		return ErrBusy
	}

	c.transcript = ""
	c.response = ""
	c.errText = ""

	ctx, cancel := context.WithCancel(c.base)
	capture, err := c.opts.Recognizer.Start(ctx)
	if err != nil {
		cancel()
		c.errText = startFailedText
		c.logger.Error("voice capture failed to start", "error", err)
		return fmt.Errorf("voice: start: %w", err)
	}

	c.gen++
	c.mode = ModeListening
	c.cycleCtx = ctx
	c.cycle = cancel
	c.capture = capture
	c.collected = make(chan string, 1)
	go c.collect(c.gen, capture, c.collected)

	c.logger.Debug("voice listening")
	return nil
}

// collect mirrors capture events into the transcript and delivers the
// final text when the capture's event channel closes.
func (c *Conversation) collect(gen uint64, capture Capture, out chan<- string) {
	var final strings.Builder
	for t := range capture.Events() {
		c.mu.Lock()
		if t.Final {
			final.WriteString(t.Text)
			if gen == c.gen {
				c.transcript = final.String()
			}
		} else if gen == c.gen {
			c.transcript = final.String() + t.Text
		}
		c.mu.Unlock()
	}
	out <- final.String()
}

// WriteAudio feeds captured audio to the recognizer.
func (c *Conversation) WriteAudio(p []byte) error {
	c.mu.Lock()
	capture := c.capture
	listening := c.mode == ModeListening
	c.mu.Unlock()
	if !listening || capture == nil {
		return ErrNotListening
	}
	_, err := capture.Write(p)
	return err
}

// StopListening ends the capture and answers the final transcript in the
// background. It returns once the transcript is known. From then until
// the reply has been spoken the conversation is in the speaking mode.
func (c *Conversation) StopListening() error {
	c.mu.Lock()
	if c.mode != ModeListening || c.capture == nil {
		c.mu.Unlock()
		return ErrNotListening
	}
	gen := c.gen
	capture := c.capture
	collected := c.collected
	c.capture = nil
	c.mu.Unlock()

	stopErr := capture.Stop()
	text := <-collected

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	if stopErr != nil {
		c.errText = "Speech error: " + stopErr.Error()
		c.toIdleLocked()
		c.mu.Unlock()
		c.logger.Error("voice capture failed", "error", stopErr)
		return stopErr
	}
	c.transcript = text
	c.mode = ModeSpeaking
	ctx := c.cycleCtx
	c.mu.Unlock()

	go c.respond(ctx, gen, text)
	return nil
}

func (c *Conversation) respond(ctx context.Context, gen uint64, text string) {
	if c.opts.Sender == nil {
		c.mu.Lock()
		c.errText = missingKeyText
		c.mu.Unlock()
		c.finish(gen)
		return
	}
	if strings.TrimSpace(text) == "" {
		c.finish(gen)
		return
	}

	reply, err := c.opts.Sender.Send(ctx, text)
	if !c.current(gen) {
		return
	}
	if err != nil {
		c.logger.Error("voice reply failed", "error", err)
		c.mu.Lock()
		c.errText = respondFailedText
		c.mu.Unlock()
		c.speak(ctx, gen, respondFailedText)
		return
	}

	c.mu.Lock()
	c.response = reply
	c.mu.Unlock()
	c.speak(ctx, gen, reply)
}

func (c *Conversation) speak(ctx context.Context, gen uint64, text string) {
	if text == "" || c.opts.Synthesizer == nil || c.opts.Player == nil {
		c.finish(gen)
		return
	}

	audio, err := c.opts.Synthesizer.Synthesize(ctx, text, c.opts.Voice())
	if err == nil {
		err = c.opts.Player.Play(ctx, audio)
	}
	if err != nil && c.current(gen) {
		c.logger.Error("voice playback failed", "error", err)
		c.mu.Lock()
		c.errText = speakFailedText
		c.mu.Unlock()
	}
	c.finish(gen)
}

func (c *Conversation) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// finish returns cycle gen to idle and reports the end of the exchange.
func (c *Conversation) finish(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.toIdleLocked()
	c.mu.Unlock()
	if c.opts.OnEnd != nil {
		c.opts.OnEnd()
	}
}

func (c *Conversation) toIdleLocked() {
	c.mode = ModeIdle
	if c.cycle != nil {
		c.cycle()
		c.cycle = nil
	}
}

// StopAll abandons the current cycle: capture and playback stop at once
// and nothing further is sent or spoken.
func (c *Conversation) StopAll() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.gen++
	c.toIdleLocked()
	c.mu.Unlock()

	if capture != nil {
		go capture.Stop()
	}
	c.logger.Debug("voice stopped")
}

// Status returns the current snapshot.
func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:       c.mode.String(),
		Transcript: c.transcript,
		Response:   c.response,
		Error:      c.errText,
	}
}

// Mode returns the current mode.
func (c *Conversation) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Close stops the conversation permanently.
func (c *Conversation) Close() {
	c.StopAll()
	c.cancel()
}
