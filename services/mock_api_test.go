package services

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"ticket-engine/models"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	if tx, ok := args.Get(0).(*models.Transaction); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if tx, ok := args.Get(0).(*models.Transaction); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) UploadPaymentProof(ctx context.Context, id, filename string, file io.Reader) (*models.Transaction, error) {
	args := m.Called(ctx, id, filename, file)
	if tx, ok := args.Get(0).(*models.Transaction); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) CancelTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if tx, ok := args.Get(0).(*models.Transaction); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) AcceptTransaction(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) RejectTransaction(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	if e, ok := args.Get(0).(*models.Event); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetPointsBalance(ctx context.Context) (*models.PointsBalance, error) {
	args := m.Called(ctx)
	if p, ok := args.Get(0).(*models.PointsBalance); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetActiveCoupons(ctx context.Context) ([]models.Coupon, error) {
	args := m.Called(ctx)
	if c, ok := args.Get(0).([]models.Coupon); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetEventVouchers(ctx context.Context, eventID string) ([]models.Voucher, error) {
	args := m.Called(ctx, eventID)
	if v, ok := args.Get(0).([]models.Voucher); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
