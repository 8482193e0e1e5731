// Package booking holds the car-service add-ons and partner-gym training
// sessions a user picks from the dashboard. Catalogs are fixed; choices
// are kept in memory and announced through a notifier.
package booking

import (
	"errors"
	"log/slog"
	"time"

	"github.com/river-app/river/internal/notify"
)

var (
	ErrUnknownService = errors.New("booking: unknown car service")
	ErrUnknownGym     = errors.New("booking: unknown gym")
	ErrUnknownCoach   = errors.New("booking: coach does not train at the selected gym")
	ErrNoGym          = errors.New("booking: select a partner gym first")
	ErrIncomplete     = errors.New("booking: coach, date and time are required")
)

// Options configures CarWash and Fitness.
type Options struct {
	Notifier notify.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Notifier == nil {
		o.Notifier = notify.Discard
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
