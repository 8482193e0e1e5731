package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/river-app/river/pkg/protocol"
)

// Preferences holds the user's email notification categories. Saving
// announces itself through the notifier like any other settings change.
type Preferences struct {
	notifier Notifier
	logger   *slog.Logger

	mu    sync.RWMutex
	prefs protocol.NotificationPreferences
}

// NewPreferences starts from the default categories.
func NewPreferences(n Notifier, logger *slog.Logger) *Preferences {
	if n == nil {
		n = Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preferences{notifier: n, logger: logger, prefs: protocol.DefaultNotificationPreferences()}
}

// Get returns the current categories.
func (p *Preferences) Get() protocol.NotificationPreferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs
}

// Save replaces the categories.
func (p *Preferences) Save(ctx context.Context, prefs protocol.NotificationPreferences) protocol.NotificationPreferences {
	p.mu.Lock()
	p.prefs = prefs
	p.mu.Unlock()

	p.logger.Info("notification preferences saved",
		"news", prefs.News, "offers", prefs.Offers, "surveys", prefs.Surveys, "developer", prefs.Developer)
	if err := p.notifier.Notify(ctx, New("preferences", "Notification preferences saved!", time.Now())); err != nil {
		p.logger.Warn("notification delivery failed", "source", "preferences", "error", err)
	}
	return prefs
}

// UnsubscribeAll turns every category off and saves.
func (p *Preferences) UnsubscribeAll(ctx context.Context) protocol.NotificationPreferences {
	return p.Save(ctx, protocol.NotificationPreferences{})
}
