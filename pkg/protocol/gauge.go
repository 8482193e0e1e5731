package protocol

import "time"

// GaugeAction is the direction of a gauge change.
type GaugeAction string

const (
	GaugeAdded    GaugeAction = "added"
	GaugeConsumed GaugeAction = "consumed"
)

// LogEntry records one gauge change.
type LogEntry struct {
	Time   time.Time   `json:"time"`
	Gauge  string      `json:"gauge"`
	Action GaugeAction `json:"action"`
	Amount float64     `json:"amount"`
}

// Delivery records a completed refill.
type Delivery struct {
	ID     string    `json:"id"`
	Gauge  string    `json:"gauge"`
	Amount float64   `json:"amount"`
	Time   time.Time `json:"time"`
}

// MonthlyConsumption is the consumed amount aggregated per calendar month.
type MonthlyConsumption struct {
	Month  string  `json:"month"` // YYYY-MM
	Amount float64 `json:"amount"`
}

// GaugeStatus is a read-only view of a gauge.
type GaugeStatus struct {
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Total      float64 `json:"total"`
	Current    float64 `json:"current"`
	Percentage int     `json:"percentage"`
	Level      string  `json:"level"`
	StatusText string  `json:"status_text"`
	AmountText string  `json:"amount_text"`
}
