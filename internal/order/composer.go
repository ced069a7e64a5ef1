// Package order assembles buyer selections into a submittable order request.
package order

import (
	"time"

	"github.com/go-playground/validator/v10"

	"ticket-engine/internal/inventory"
	"ticket-engine/internal/status"
	"ticket-engine/models"
)

var validate = validator.New()

// Compose validates the selections against fresh event data and returns the
// request to submit. Checks run in a fixed order and short-circuit on the
// first failure: empty order, ended event, then per-line quota. Bounds are
// recomputed here rather than trusted from stale stepper state. Pure: no I/O,
// no side effects.
func Compose(event *models.Event, items []models.LineItem, rewards models.RewardSelection, now time.Time) (*models.OrderRequest, error) {
	kept := make([]models.LineItem, 0, len(items))
	for _, li := range items {
		if li.Quantity > 0 {
			kept = append(kept, li)
		}
	}
	if len(kept) == 0 {
		return nil, status.ErrEmptyOrder
	}

	if event.HasEnded(now) {
		return nil, status.ErrEventEnded
	}

	for _, li := range kept {
		tt := event.TicketTypeByID(li.TicketTypeID)
		if tt == nil {
			return nil, status.ErrUnknownTicket
		}
		if li.Quantity > inventory.MaxQuantity(event, tt, now) {
			return nil, status.ErrQuotaExceeded
		}
	}

	req := &models.OrderRequest{
		EventID:   event.ID,
		LineItems: kept,
		UsePoints: rewards.UsePoints,
		CouponID:  rewards.CouponID,
		VoucherID: rewards.VoucherID,
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}
