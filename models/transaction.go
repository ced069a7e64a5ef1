package models

import (
	"time"
)

// PaymentStatus is the transaction lifecycle state owned by the backend. The
// engine never sets it locally; it re-fetches the record after every intent.
type PaymentStatus string

const (
	StatusWaitingForPayment   PaymentStatus = "waiting_for_payment"
	StatusWaitingConfirmation PaymentStatus = "waiting_for_admin_confirmation"
	StatusDone                PaymentStatus = "done"
	StatusCanceled            PaymentStatus = "canceled"
	StatusExpired             PaymentStatus = "expired"
	StatusRejected            PaymentStatus = "rejected"
)

// allowedTransitions maps each state to the states the backend may move it
// to. Terminal states have no outgoing transitions. done appears twice as a
// target because zero-total orders are created directly in done.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	StatusWaitingForPayment: {
		StatusWaitingConfirmation, // proof uploaded before the payment deadline
		StatusCanceled,            // buyer cancel
		StatusExpired,             // payment deadline elapsed
	},
	StatusWaitingConfirmation: {
		StatusDone,     // organizer accept
		StatusRejected, // organizer reject
		StatusExpired,  // confirmation deadline elapsed
	},
	StatusDone:     {},
	StatusCanceled: {},
	StatusExpired:  {},
	StatusRejected: {},
}

// CanTransition reports whether the backend is allowed to move a transaction
// from one state to another.
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the state.
func (s PaymentStatus) IsTerminal() bool {
	targets, known := allowedTransitions[s]
	return known && len(targets) == 0
}

// RollsBack reports whether entering the state restores consumed resources
// (quota, points, coupon, voucher). done finalizes instead.
func (s PaymentStatus) RollsBack() bool {
	switch s {
	case StatusCanceled, StatusExpired, StatusRejected:
		return true
	}
	return false
}

// InitialStatus is the state a fresh transaction must report: zero-cost
// orders skip payment entirely.
func InitialStatus(total int64) PaymentStatus {
	if total > 0 {
		return StatusWaitingForPayment
	}
	return StatusDone
}

// TransactionItem is a line item with its unit price frozen at submission.
type TransactionItem struct {
	TicketTypeID string `json:"ticket_type_id"`
	Name         string `json:"name,omitempty"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int    `json:"quantity"`
}

// Transaction is the authoritative record the backend returns after order
// submission. The engine treats it as read-only and replaces its snapshot
// wholesale on every fetch.
type Transaction struct {
	ID                   string            `json:"id"`
	InvoiceNumber        string            `json:"invoice_number"`
	EventID              string            `json:"event_id"`
	UserID               string            `json:"user_id,omitempty"`
	Items                []TransactionItem `json:"items"`
	Subtotal             int64             `json:"subtotal"`
	PointsUsed           int64             `json:"points_used"`
	CouponDiscount       int64             `json:"coupon_discount"`
	VoucherDiscount      int64             `json:"voucher_discount"`
	TotalAmount          int64             `json:"total_amount"`
	PaymentStatus        PaymentStatus     `json:"payment_status"`
	PaymentDeadline      time.Time         `json:"payment_deadline"`
	ConfirmationDeadline *time.Time        `json:"confirmation_deadline,omitempty"`
	PaymentProofURL      string            `json:"payment_proof_url,omitempty"`
	ProofUploadedAt      *time.Time        `json:"proof_uploaded_at,omitempty"`
	ConfirmedAt          *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// ActiveDeadline is the deadline governing the current state, or zero if the
// state is not time-boxed.
func (t *Transaction) ActiveDeadline() time.Time {
	switch t.PaymentStatus {
	case StatusWaitingForPayment:
		return t.PaymentDeadline
	case StatusWaitingConfirmation:
		if t.ConfirmationDeadline != nil {
			return *t.ConfirmationDeadline
		}
	}
	return time.Time{}
}

// Remaining is the countdown shown next to a time-boxed state. It is purely
// advisory: reaching zero triggers a re-fetch, never a local transition.
func Remaining(deadline, now time.Time) time.Duration {
	if deadline.IsZero() || !deadline.After(now) {
		return 0
	}
	return deadline.Sub(now)
}
