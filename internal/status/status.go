package status

import (
	"errors"
	"fmt"
)

// Validation errors: raised by the order composer before any network call.
// Fully recoverable by correcting input.
var (
	ErrEmptyOrder    = errors.New("order: no line item with positive quantity")
	ErrEventEnded    = errors.New("order: event has already ended")
	ErrQuotaExceeded = errors.New("order: quantity exceeds available quota")
	ErrUnknownTicket = errors.New("order: unknown ticket type for event")
)

// Intent errors: the engine refused to issue a backend intent because the
// local snapshot already rules it out.
var (
	ErrIntentNotAllowed = errors.New("transaction: intent not valid in current state")
	ErrIntentInFlight   = errors.New("transaction: another intent is still in flight")
	ErrStaleResponse    = errors.New("transaction: response is for a different transaction")
)

// Conflict codes the backend answers with when state changed between the
// client's read and its submission. The user re-selects; nothing is retried
// automatically.
const (
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
	CodeCouponUsed       = "COUPON_ALREADY_USED"
	CodeVoucherExhausted = "VOUCHER_EXHAUSTED"
	CodePointsChanged    = "POINTS_BALANCE_CHANGED"
	CodeInvalidState     = "INVALID_STATE"
)

// ConflictError carries the backend's rejection code. Resolved by re-fetching
// authoritative state, never by client-side reconciliation.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("conflict: %s", e.Code)
	}
	return fmt.Sprintf("conflict: %s: %s", e.Code, e.Message)
}

// IsConflict reports whether err is a backend conflict and returns its code.
func IsConflict(err error) (string, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// TransientError wraps network-level failures. The same user action may be
// re-issued by the user; the engine never retries on its own.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
