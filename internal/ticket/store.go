// Package ticket persists the history of simulated service requests.
package ticket

import (
	"errors"

	"github.com/river-app/river/pkg/protocol"
)

// ErrNotFound is returned by Get for an unknown ticket ID.
var ErrNotFound = errors.New("ticket not found")

// Store is the persistence interface for service tickets.
type Store interface {
	// Save creates or updates a ticket.
	Save(t protocol.Ticket) error
	// Get retrieves a ticket by ID.
	Get(id string) (protocol.Ticket, error)
	// List returns tickets matching the filter, newest first.
	List(filter Filter) ([]protocol.Ticket, error)
	// Count returns the number of tickets matching the filter.
	Count(filter Filter) (int, error)
}

// Filter constrains ticket list queries.
type Filter struct {
	Kind  protocol.ServiceKind // empty matches all
	Stage protocol.Stage       // empty matches all
	Limit int                  // 0 = no limit
}
