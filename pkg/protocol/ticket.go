package protocol

import "time"

// ServiceKind names a simulated service request type.
type ServiceKind string

const (
	ServiceRefill ServiceKind = "refill"
	ServicePickup ServiceKind = "pickup"
)

// Stage is a named point in a ticket's forward-only lifecycle.
type Stage string

const (
	StageRequested  Stage = "requested"
	StageInProgress Stage = "in_progress"
	StageOnTheWay   Stage = "on_the_way"
	StageCompleted  Stage = "completed"
)

// Rank returns the ordinal position of the stage. Both intermediate
// stages share rank 1. Unknown stages rank -1.
func (s Stage) Rank() int {
	switch s {
	case StageRequested:
		return 0
	case StageInProgress, StageOnTheWay:
		return 1
	case StageCompleted:
		return 2
	default:
		return -1
	}
}

// Ticket tracks the simulated progress of a single refill or pickup request.
type Ticket struct {
	ID             string      `json:"id"`
	Kind           ServiceKind `json:"kind"`
	Stage          Stage       `json:"stage"`
	RequestedAt    time.Time   `json:"requested_at"`
	IntermediateAt *time.Time  `json:"intermediate_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ResultAmount   *float64    `json:"result_amount,omitempty"`
	Unit           string      `json:"unit"`
}

// Clone returns a deep copy so callers can't mutate the simulator's ticket.
func (t Ticket) Clone() Ticket {
	c := t
	if t.IntermediateAt != nil {
		v := *t.IntermediateAt
		c.IntermediateAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.ResultAmount != nil {
		v := *t.ResultAmount
		c.ResultAmount = &v
	}
	return c
}
