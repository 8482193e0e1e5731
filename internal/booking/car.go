package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/river-app/river/internal/notify"
	"github.com/river-app/river/pkg/protocol"
)

// CarServices is the add-on catalog. The monthly wash itself is part of
// every plan and is not listed.
var CarServices = []protocol.CarService{
	{Name: "Interior Detailing", Price: "₱2500"},
	{Name: "Wax & Polish", Price: "₱1800"},
	{Name: "Tire Shine", Price: "₱500"},
}

// CarWash holds the add-ons confirmed for the next car service.
type CarWash struct {
	opts Options

	mu       sync.Mutex
	selected []string
}

// NewCarWash creates a CarWash with nothing selected.
func NewCarWash(opts Options) *CarWash {
	return &CarWash{opts: opts.withDefaults()}
}

// Selected returns the confirmed add-ons in catalog order.
func (c *CarWash) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.selected...)
}

// Confirm replaces the selection. Names must come from CarServices;
// duplicates are dropped. An empty selection clears it.
func (c *CarWash) Confirm(ctx context.Context, names []string) ([]string, error) {
	var picked []string
	for _, svc := range CarServices {
		if slices.Contains(names, svc.Name) {
			picked = append(picked, svc.Name)
		}
	}
	for _, n := range names {
		if !slices.ContainsFunc(CarServices, func(s protocol.CarService) bool { return s.Name == n }) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownService, n)
		}
	}

	c.mu.Lock()
	c.selected = picked
	c.mu.Unlock()

	text := "No extra car services selected."
	if len(picked) > 0 {
		text = strings.Join(picked, ", ") + " added to your next service."
	}
	c.opts.Logger.Info("car services confirmed", "services", picked)
	if err := c.opts.Notifier.Notify(ctx, notify.New("car", text, c.opts.Now())); err != nil {
		c.opts.Logger.Warn("notification delivery failed", "source", "car", "error", err)
	}
	return append([]string{}, picked...), nil
}
