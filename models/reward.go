package models

import (
	"time"
)

// DiscountType is shared by coupons and vouchers.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type CouponStatus string

const (
	CouponActive  CouponStatus = "active"
	CouponUsed    CouponStatus = "used"
	CouponExpired CouponStatus = "expired"
)

// Coupon is a personal reward instrument. Only active coupons discount an
// order; the backend flips the status to used when a transaction consumes it
// and back to active on rollback.
type Coupon struct {
	ID            string       `json:"id"`
	Code          string       `json:"code,omitempty"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	Status        CouponStatus `json:"status"`
	ExpiredAt     *time.Time   `json:"expired_at,omitempty"`
}

func (c *Coupon) Usable() bool {
	return c != nil && c.Status == CouponActive
}

// Voucher is an event-scoped reward instrument with a usage quota and a
// validity window.
type Voucher struct {
	ID            string       `json:"id"`
	EventID       string       `json:"event_id"`
	Code          string       `json:"code,omitempty"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MaxDiscount   int64        `json:"max_discount,omitempty"` // 0 means no cap
	IsActive      bool         `json:"is_active"`
	StartDate     time.Time    `json:"start_date"`
	ExpiredAt     time.Time    `json:"expired_at"`
	UsedCount     int          `json:"used_count"`
	MaxUsage      int          `json:"max_usage"`
}

// UsableAt reports whether the voucher may discount an order placed at now:
// active, started, not expired and with usage quota remaining.
func (v *Voucher) UsableAt(now time.Time) bool {
	if v == nil || !v.IsActive {
		return false
	}
	if now.Before(v.StartDate) || !now.Before(v.ExpiredAt) {
		return false
	}
	return v.UsedCount < v.MaxUsage
}

// PointsBalance is the buyer's loyalty balance, spendable one point per
// smallest currency unit.
type PointsBalance struct {
	UserID    string    `json:"user_id,omitempty"`
	Balance   int64     `json:"balance"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}
