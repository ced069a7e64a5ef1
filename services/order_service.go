package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticket-engine/internal/order"
	"ticket-engine/internal/pricing"
	"ticket-engine/internal/readmodel"
	"ticket-engine/models"
	"ticket-engine/monitoring"
)

// OrderService turns ticket selections into submitted orders. It never
// retries a submission on its own; a failed submit is surfaced and the user
// decides.
type OrderService struct {
	api       MarketplaceAPI
	snapshots *readmodel.Store
	now       func() time.Time
}

func NewOrderService(api MarketplaceAPI, snapshots *readmodel.Store) *OrderService {
	return &OrderService{
		api:       api,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Quote prices the current selections against fresh reward snapshots. The
// result is advisory: the backend recomputes it authoritatively at submission
// and this engine's arithmetic must match it exactly.
func (s *OrderService) Quote(ctx context.Context, event *models.Event, items []models.LineItem, rewards models.RewardSelection) (*pricing.Quote, error) {
	req := models.OrderRequest{EventID: event.ID, LineItems: items}
	subtotal := req.Subtotal(event)

	var points *models.PointsBalance
	if rewards.UsePoints {
		p, err := s.api.GetPointsBalance(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch points balance: %w", err)
		}
		points = p
	}

	var coupon *models.Coupon
	if rewards.CouponID != "" {
		coupons, err := s.api.GetActiveCoupons(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch coupons: %w", err)
		}
		for i := range coupons {
			if coupons[i].ID == rewards.CouponID {
				coupon = &coupons[i]
				break
			}
		}
	}

	var voucher *models.Voucher
	if rewards.VoucherID != "" {
		vouchers, err := s.api.GetEventVouchers(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch vouchers: %w", err)
		}
		for i := range vouchers {
			if vouchers[i].ID == rewards.VoucherID {
				voucher = &vouchers[i]
				break
			}
		}
	}

	q := pricing.ComputeTotal(subtotal, points, rewards.UsePoints, coupon, voucher, s.now())
	return &q, nil
}

// Submit re-validates the selections against a fresh event read, submits the
// order once and caches the transaction the backend answered with.
func (s *OrderService) Submit(ctx context.Context, eventID string, items []models.LineItem, rewards models.RewardSelection) (*models.Transaction, error) {
	event, err := s.api.GetEvent(ctx, eventID)
	if err != nil {
		monitoring.OrderSubmitted("fetch_failed")
		return nil, fmt.Errorf("fetch event: %w", err)
	}

	req, err := order.Compose(event, items, rewards, s.now())
	if err != nil {
		monitoring.OrderSubmitted("validation_failed")
		return nil, err
	}

	tx, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		monitoring.OrderSubmitted("rejected")
		return nil, err
	}

	if want := models.InitialStatus(tx.TotalAmount); tx.PaymentStatus != want {
		// backend owns the state; a disagreement here means our copy of the
		// rules is out of date
		slog.Warn("unexpected initial transaction state",
			"transaction_id", tx.ID,
			"status", tx.PaymentStatus,
			"expected", want,
		)
	}

	if err := s.snapshots.Put(ctx, tx, s.now()); err != nil {
		slog.Error("failed to cache transaction snapshot", "transaction_id", tx.ID, "error", err)
	}

	monitoring.OrderSubmitted("accepted")
	return tx, nil
}
