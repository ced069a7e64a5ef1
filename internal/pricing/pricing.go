// Package pricing implements the discount stacking rules for an order.
//
// Points, coupon and voucher are each computed independently against the
// original subtotal (never cascaded), summed, and subtracted once. Whether
// all three instruments should combine freely is backend-owned policy; this
// engine mirrors it so the client total matches the authoritative one
// bit-for-bit.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"ticket-engine/models"
)

var hundred = decimal.NewFromInt(100)

// Quote is the engine's pricing of one order. Total is what the buyer pays.
type Quote struct {
	Subtotal        int64 `json:"subtotal"`
	PointsDiscount  int64 `json:"points_discount"`
	CouponDiscount  int64 `json:"coupon_discount"`
	VoucherDiscount int64 `json:"voucher_discount"`
	Total           int64 `json:"total"`
}

// ComputeTotal stacks the selected reward instruments against subtotal.
// A zero subtotal discounts nothing, so no instrument is consumed for a
// fully free order. Pure: identical inputs give identical quotes.
func ComputeTotal(subtotal int64, points *models.PointsBalance, usePoints bool, coupon *models.Coupon, voucher *models.Voucher, now time.Time) Quote {
	q := Quote{Subtotal: subtotal}
	if subtotal <= 0 {
		return q
	}

	if usePoints && points != nil {
		q.PointsDiscount = min(points.Balance, subtotal)
		if q.PointsDiscount < 0 {
			q.PointsDiscount = 0
		}
	}

	if coupon.Usable() {
		switch coupon.DiscountType {
		case models.DiscountPercentage:
			q.CouponDiscount = percentOf(subtotal, coupon.DiscountValue)
		case models.DiscountFixed:
			// taken verbatim; only the final total is clamped
			q.CouponDiscount = coupon.DiscountValue
		}
	}

	if voucher.UsableAt(now) {
		switch voucher.DiscountType {
		case models.DiscountPercentage:
			q.VoucherDiscount = percentOf(subtotal, voucher.DiscountValue)
			if voucher.MaxDiscount > 0 {
				q.VoucherDiscount = min(q.VoucherDiscount, voucher.MaxDiscount)
			}
		case models.DiscountFixed:
			q.VoucherDiscount = voucher.DiscountValue
		}
	}

	q.Total = subtotal - q.PointsDiscount - q.CouponDiscount - q.VoucherDiscount
	if q.Total < 0 {
		q.Total = 0
	}
	return q
}

// percentOf floors so rounding never discounts beyond the intended rate.
func percentOf(amount, value int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(value)).
		Div(hundred).
		Floor().
		IntPart()
}
