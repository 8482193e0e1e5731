// Package lifecycle simulates the progress of mocked service requests.
// A request moves requested -> intermediate -> completed on timers.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/river-app/river/pkg/protocol"
)

// Profile describes how one kind of service request progresses.
type Profile struct {
	Kind              protocol.ServiceKind
	Intermediate      protocol.Stage
	IntermediateAfter time.Duration
	CompleteAfter     time.Duration
	Amount            float64
	Unit              string

	RequestedText    string
	IntermediateText string
	CompletedText    func(amount float64) string
}

// RefillProfile is a manual water refill: in progress after 5s, 60 liters
// delivered after 12s.
func RefillProfile() Profile {
	return Profile{
		Kind:              protocol.ServiceRefill,
		Intermediate:      protocol.StageInProgress,
		IntermediateAfter: 5 * time.Second,
		CompleteAfter:     12 * time.Second,
		Amount:            60,
		Unit:              "L",
		RequestedText:     "Refill request sent!",
		IntermediateText:  "Your water refill is in progress.",
		CompletedText: func(amount float64) string {
			return fmt.Sprintf("Refill complete! %.0f Gallons added.", amount/20)
		},
	}
}

// PickupProfile is a laundry pickup: driver on the way after 4s, 8.5 kg
// collected after 10s.
func PickupProfile() Profile {
	return Profile{
		Kind:              protocol.ServicePickup,
		Intermediate:      protocol.StageOnTheWay,
		IntermediateAfter: 4 * time.Second,
		CompleteAfter:     10 * time.Second,
		Amount:            8.5,
		Unit:              "kg",
		RequestedText:     "Laundry pickup requested!",
		IntermediateText:  "Driver is on the way for your laundry pickup.",
		CompletedText: func(amount float64) string {
			return fmt.Sprintf("Pickup complete! %.1f KG collected.", amount)
		},
	}
}

func (p Profile) text(stage protocol.Stage, amount float64) string {
	switch {
	case stage == protocol.StageRequested:
		return p.RequestedText
	case stage == protocol.StageCompleted && p.CompletedText != nil:
		return p.CompletedText(amount)
	case stage == p.Intermediate:
		return p.IntermediateText
	}
	return ""
}
