// Package gauge tracks resource levels (water, laundry, car wash credits,
// fitness sessions) and their usage history.
package gauge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/river-app/river/internal/notify"
	"github.com/river-app/river/pkg/protocol"
)

// ErrInvalidAmount is returned for non-positive or non-finite amounts.
var ErrInvalidAmount = errors.New("gauge: amount must be positive")

const maxLog = 200

// Options configures a Gauge.
type Options struct {
	Store    Store
	Notifier notify.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

// Gauge is a bounded level between 0 and Total.
type Gauge struct {
	name  string
	unit  string
	total float64

	store    Store
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current float64
	log     []protocol.LogEntry // newest first
}

// New creates a gauge. When a store holds a saved level for name, it
// replaces initial.
func New(name, unit string, total, initial float64, opts Options) (*Gauge, error) {
	if total <= 0 {
		return nil, fmt.Errorf("gauge %q: total must be positive", name)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	g := &Gauge{
		name:     name,
		unit:     unit,
		total:    total,
		store:    opts.Store,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
		current:  clamp(initial, 0, total),
	}
	if g.store != nil {
		level, ok, err := g.store.LoadLevel(name)
		if err != nil {
			return nil, err
		}
		if ok {
			g.current = clamp(level, 0, total)
		}
		entries, err := g.store.Log(name, maxLog)
		if err != nil {
			return nil, err
		}
		g.log = entries
	}
	return g, nil
}

// Name returns the gauge name.
func (g *Gauge) Name() string { return g.name }

// Increment adds amount, capped at Total.
func (g *Gauge) Increment(ctx context.Context, amount float64) (protocol.GaugeStatus, error) {
	return g.apply(ctx, protocol.GaugeAdded, amount)
}

// Decrement removes amount, floored at 0.
func (g *Gauge) Decrement(ctx context.Context, amount float64) (protocol.GaugeStatus, error) {
	return g.apply(ctx, protocol.GaugeConsumed, amount)
}

func (g *Gauge) apply(ctx context.Context, action protocol.GaugeAction, amount float64) (protocol.GaugeStatus, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return g.Status(), ErrInvalidAmount
	}

	g.mu.Lock()
	entry := protocol.LogEntry{Time: g.now(), Gauge: g.name, Action: action, Amount: amount}
	if action == protocol.GaugeAdded {
		g.current = clamp(g.current+amount, 0, g.total)
	} else {
		g.current = clamp(g.current-amount, 0, g.total)
	}
	g.log = append([]protocol.LogEntry{entry}, g.log...)
	if len(g.log) > maxLog {
		g.log = g.log[:maxLog]
	}
	current := g.current
	status := g.statusLocked()
	// Persisted under the lock so the saved level and log follow the
	// in-memory order.
	if g.store != nil {
		if err := g.store.AppendLog(entry); err != nil {
			g.logger.Error("gauge log not persisted", "gauge", g.name, "error", err)
		}
		if err := g.store.SaveLevel(g.name, current); err != nil {
			g.logger.Error("gauge level not persisted", "gauge", g.name, "error", err)
		}
	}
	g.mu.Unlock()

	g.logger.Info("gauge changed", "gauge", g.name, "action", action, "amount", amount, "current", current)
	text := fmt.Sprintf("%s %s: %s (%s)", capitalize(g.name), action, formatAmount(amount, g.unit), status.AmountText)
	if err := g.notifier.Notify(ctx, notify.New("gauge:"+g.name, text, entry.Time)); err != nil {
		g.logger.Warn("notification delivery failed", "gauge", g.name, "error", err)
	}
	return status, nil
}

// Status returns the current view of the gauge.
func (g *Gauge) Status() protocol.GaugeStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.statusLocked()
}

func (g *Gauge) statusLocked() protocol.GaugeStatus {
	pct := percentage(g.current, g.total)
	level := levelFor(pct)
	return protocol.GaugeStatus{
		Name:       g.name,
		Unit:       g.unit,
		Total:      g.total,
		Current:    g.current,
		Percentage: pct,
		Level:      level,
		StatusText: "Level | " + level,
		AmountText: formatAmount(g.current, g.unit) + " / " + formatAmount(g.total, g.unit),
	}
}

// Log returns up to limit entries, newest first. limit <= 0 returns all.
func (g *Gauge) Log(limit int) []protocol.LogEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if limit <= 0 || limit > len(g.log) {
		limit = len(g.log)
	}
	return append([]protocol.LogEntry(nil), g.log[:limit]...)
}

func percentage(current, total float64) int {
	return int(math.Round(current / total * 100))
}

func levelFor(pct int) string {
	switch {
	case pct > 75:
		return "High"
	case pct < 25:
		return "Low"
	default:
		return "Medium"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func formatAmount(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + unit
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
