package gauge

import "github.com/river-app/river/pkg/protocol"

// Store is the persistence interface for gauge levels and history.
type Store interface {
	// LoadLevel returns the saved level for a gauge, if any.
	LoadLevel(gauge string) (float64, bool, error)
	// SaveLevel records the current level of a gauge.
	SaveLevel(gauge string, current float64) error
	// AppendLog records one gauge change.
	AppendLog(entry protocol.LogEntry) error
	// Log returns up to limit entries for a gauge, newest first.
	Log(gauge string, limit int) ([]protocol.LogEntry, error)
	// AddDelivery records a completed refill.
	AddDelivery(d protocol.Delivery) error
	// Deliveries returns up to limit deliveries, newest first. An empty
	// gauge matches all.
	Deliveries(gauge string, limit int) ([]protocol.Delivery, error)
	// MonthlyConsumption sums consumed amounts per month for the most
	// recent months, oldest first.
	MonthlyConsumption(gauge string, months int) ([]protocol.MonthlyConsumption, error)
}
