package services

import (
	"context"
	"io"

	"ticket-engine/models"
)

// MarketplaceAPI is the backend surface the engine consumes. Implemented by
// marketplace.Client; mocked in tests.
type MarketplaceAPI interface {
	CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UploadPaymentProof(ctx context.Context, id, filename string, file io.Reader) (*models.Transaction, error)
	CancelTransaction(ctx context.Context, id string) (*models.Transaction, error)
	AcceptTransaction(ctx context.Context, id string) error
	RejectTransaction(ctx context.Context, id string) error

	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetPointsBalance(ctx context.Context) (*models.PointsBalance, error)
	GetActiveCoupons(ctx context.Context) ([]models.Coupon, error)
	GetEventVouchers(ctx context.Context, eventID string) ([]models.Voucher, error)
}
