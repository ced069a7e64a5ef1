// Package eligibility decides whether a user may review an event.
package eligibility

import (
	"ticket-engine/models"
)

// Decision carries the verdict and, when denied, a machine-friendly reason.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

const (
	ReasonNotLoggedIn     = "not_logged_in"
	ReasonEventNotPast    = "event_not_past"
	ReasonNoDoneTx        = "no_completed_transaction"
	ReasonAlreadyReviewed = "already_reviewed"
)

// CanReview is a pure predicate over already-fetched data. A review requires
// a logged-in user, a past event, at least one transaction for the event that
// reached done, and no prior review by this user.
func CanReview(hasDoneTransaction, isPastEvent, isLoggedIn, alreadyReviewed bool) Decision {
	switch {
	case !isLoggedIn:
		return Decision{Reason: ReasonNotLoggedIn}
	case !isPastEvent:
		return Decision{Reason: ReasonEventNotPast}
	case !hasDoneTransaction:
		return Decision{Reason: ReasonNoDoneTx}
	case alreadyReviewed:
		return Decision{Reason: ReasonAlreadyReviewed}
	}
	return Decision{Allowed: true}
}

// HasDoneTransaction reports whether any of the given transactions belongs to
// the event and reached done. Pending and rolled-back transactions do not
// count.
func HasDoneTransaction(txs []models.Transaction, eventID string) bool {
	for i := range txs {
		if txs[i].EventID == eventID && txs[i].PaymentStatus == models.StatusDone {
			return true
		}
	}
	return false
}
