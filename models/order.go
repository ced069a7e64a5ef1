package models

// LineItem is one (ticket type, quantity) selection within an order.
// Quantity zero is never stored; the selection is removed instead. The upper
// bound is not a tag: the composer enforces inventory.PerOrderCap so the
// policy lives in one constant.
type LineItem struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=1"`
}

// RewardSelection is what the buyer picked on the checkout screen. All three
// instruments are optional and combine freely; the backend re-validates each
// at submission time.
type RewardSelection struct {
	UsePoints bool   `json:"use_points"`
	CouponID  string `json:"coupon_id,omitempty"`
	VoucherID string `json:"voucher_id,omitempty"`
}

// OrderRequest is sent once to the backend. It is immutable after submission;
// resubmitting creates a new, independent transaction.
type OrderRequest struct {
	EventID   string     `json:"event_id" validate:"required"`
	LineItems []LineItem `json:"line_items" validate:"required,min=1,dive"`
	UsePoints bool       `json:"use_points"`
	CouponID  string     `json:"coupon_id,omitempty"`
	VoucherID string     `json:"voucher_id,omitempty"`
}

// Subtotal prices the request against the event's current ticket types.
// Unknown ticket types contribute nothing; the composer rejects them earlier.
func (r *OrderRequest) Subtotal(event *Event) int64 {
	var total int64
	for _, li := range r.LineItems {
		if tt := event.TicketTypeByID(li.TicketTypeID); tt != nil {
			total += tt.Price * int64(li.Quantity)
		}
	}
	return total
}
