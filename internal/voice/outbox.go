package voice

import (
	"context"
	"sync"
	"time"
)

// Outbox is a Player for remote clients. Play publishes the clip and waits
// until the client acknowledges playback or MaxWait passes.
type Outbox struct {
	MaxWait time.Duration

	mu    sync.Mutex
	seq   int
	clip  []byte
	acked chan struct{}
}

// NewOutbox creates an Outbox that waits at most maxWait per clip.
func NewOutbox(maxWait time.Duration) *Outbox {
	if maxWait <= 0 {
		maxWait = time.Minute
	}
	return &Outbox{MaxWait: maxWait}
}

func (o *Outbox) Play(ctx context.Context, audio []byte) error {
	o.mu.Lock()
	o.seq++
	o.clip = audio
	acked := make(chan struct{})
	o.acked = acked
	o.mu.Unlock()

	timer := time.NewTimer(o.MaxWait)
	defer timer.Stop()
	select {
	case <-acked:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the most recent clip and its sequence number.
func (o *Outbox) Latest() ([]byte, int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clip, o.seq, o.clip != nil
}

// Ack marks the current clip as played.
func (o *Outbox) Ack() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.acked != nil {
		close(o.acked)
		o.acked = nil
	}
}
