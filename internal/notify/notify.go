// Package notify delivers human-readable observer messages about ticket and
// gauge changes to the app, chat connectors and webhooks.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/river-app/river/pkg/protocol"
)

// Notifier receives notifications.
type Notifier interface {
	Notify(ctx context.Context, n protocol.Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n protocol.Notification) error

func (f Func) Notify(ctx context.Context, n protocol.Notification) error { return f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, protocol.Notification) error { return nil })

// New builds a notification with a fresh ID.
func New(source, text string, at time.Time) protocol.Notification {
	return protocol.Notification{
		ID:     shortuuid.New(),
		Source: source,
		Text:   text,
		Time:   at,
	}
}

// Fanout delivers to every notifier in order. A failing notifier does not
// stop delivery to the rest; all errors are joined.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n protocol.Notification) error {
	var errs []error
	for _, nt := range f {
		if nt == nil {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
