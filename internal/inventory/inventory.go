// Package inventory clamps requested ticket quantities against availability.
package inventory

import (
	"time"

	"ticket-engine/models"
)

// PerOrderCap is the policy limit on units of one ticket type per order.
const PerOrderCap = 10

// MaxQuantity is the upper bound for a ticket type of the given event at now.
// Ended events sell nothing.
func MaxQuantity(event *models.Event, tt *models.TicketType, now time.Time) int {
	if event.HasEnded(now) {
		return 0
	}
	return min(tt.AvailableQuota(), PerOrderCap)
}

// Step applies a +1/-1 stepper delta to the current quantity and returns the
// clamped result. Out-of-range requests are clamped silently, not rejected:
// quota races with other buyers are expected and resolved authoritatively at
// submission time.
func Step(event *models.Event, tt *models.TicketType, current, delta int, now time.Time) int {
	return Clamp(event, tt, current+delta, now)
}

// Clamp bounds a requested quantity to [0, MaxQuantity]. Zero means the line
// item is removed.
func Clamp(event *models.Event, tt *models.TicketType, requested int, now time.Time) int {
	if requested < 0 {
		return 0
	}
	if limit := MaxQuantity(event, tt, now); requested > limit {
		return limit
	}
	return requested
}
