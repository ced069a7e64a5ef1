package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticket-engine/internal/readmodel"
	"ticket-engine/internal/status"
	"ticket-engine/models"
)

func newTransactionService(api MarketplaceAPI) (*TransactionService, redismock.ClientMock) {
	db, rmock := redismock.NewClientMock()
	svc := NewTransactionService(api, readmodel.NewStore(db, time.Hour), db)
	svc.now = func() time.Time { return testNow }
	return svc, rmock
}

func cachedSnapshot(t *testing.T, tx models.Transaction) string {
	t.Helper()
	data, err := json.Marshal(readmodel.Snapshot{Transaction: tx, FetchedAt: testNow})
	require.NoError(t, err)
	return string(data)
}

func waitingTx(id string) models.Transaction {
	return models.Transaction{
		ID:              id,
		EventID:         "event-1",
		Subtotal:        100000,
		TotalAmount:     100000,
		PaymentStatus:   models.StatusWaitingForPayment,
		PaymentDeadline: testNow.Add(2 * time.Hour),
	}
}

func TestTransactionService_Refresh(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	fresh := waitingTx("tx-1")
	api.On("GetTransaction", mock.Anything, "tx-1").Return(&fresh, nil)

	rmock.ExpectGet("txn:snapshot:tx-1").RedisNil()
	rmock.Regexp().ExpectSet("txn:snapshot:tx-1", `.*`, time.Hour).SetVal("OK")
	rmock.ExpectSAdd("txn:pending", "tx-1").SetVal(1)

	snap, err := svc.Refresh(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, fresh, snap.Transaction)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestTransactionService_Refresh_DiscardsForeignResponse(t *testing.T) {
	api := new(mockAPI)
	svc, _ := newTransactionService(api)

	other := waitingTx("tx-other")
	api.On("GetTransaction", mock.Anything, "tx-1").Return(&other, nil)

	_, err := svc.Refresh(context.Background(), "tx-1")
	assert.ErrorIs(t, err, status.ErrStaleResponse)
}

func TestTransactionService_Refresh_ExpiredDeadline(t *testing.T) {
	// a transaction whose payment deadline elapsed must come back expired;
	// the engine renders whatever the backend answered
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	expired := waitingTx("tx-1")
	expired.PaymentStatus = models.StatusExpired
	api.On("GetTransaction", mock.Anything, "tx-1").Return(&expired, nil)

	rmock.ExpectGet("txn:snapshot:tx-1").SetVal(cachedSnapshot(t, waitingTx("tx-1")))
	rmock.Regexp().ExpectSet("txn:snapshot:tx-1", `.*"payment_status":"expired".*`, time.Hour).SetVal("OK")
	rmock.ExpectSRem("txn:pending", "tx-1").SetVal(1)

	snap, err := svc.Refresh(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, snap.Transaction.PaymentStatus)
	assert.True(t, snap.Transaction.PaymentStatus.RollsBack())
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestTransactionService_Cancel(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	canceled := waitingTx("tx-1")
	canceled.PaymentStatus = models.StatusCanceled
	api.On("CancelTransaction", mock.Anything, "tx-1").Return(&canceled, nil)

	rmock.ExpectGet("txn:snapshot:tx-1").SetVal(cachedSnapshot(t, waitingTx("tx-1")))
	rmock.ExpectSetNX("txn:intent:tx-1", "cancel", intentGuardTTL).SetVal(true)
	rmock.Regexp().ExpectSet("txn:snapshot:tx-1", `.*"payment_status":"canceled".*`, time.Hour).SetVal("OK")
	rmock.ExpectSRem("txn:pending", "tx-1").SetVal(1)
	rmock.ExpectDel("txn:intent:tx-1").SetVal(1)

	snap, err := svc.Cancel(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, snap.Transaction.PaymentStatus)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestTransactionService_Cancel_NotAllowedAfterProofUpload(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	confirming := waitingTx("tx-1")
	confirming.PaymentStatus = models.StatusWaitingConfirmation
	rmock.ExpectGet("txn:snapshot:tx-1").SetVal(cachedSnapshot(t, confirming))

	_, err := svc.Cancel(context.Background(), "tx-1")
	assert.ErrorIs(t, err, status.ErrIntentNotAllowed)
	api.AssertNotCalled(t, "CancelTransaction", mock.Anything, mock.Anything)
}

func TestTransactionService_ContradictoryIntentsBlocked(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	rmock.ExpectGet("txn:snapshot:tx-1").SetVal(cachedSnapshot(t, waitingTx("tx-1")))
	// an upload-proof intent still holds the guard
	rmock.ExpectSetNX("txn:intent:tx-1", "cancel", intentGuardTTL).SetVal(false)

	_, err := svc.Cancel(context.Background(), "tx-1")
	assert.ErrorIs(t, err, status.ErrIntentInFlight)
	api.AssertNotCalled(t, "CancelTransaction", mock.Anything, mock.Anything)
}

func TestTransactionService_UploadProof(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	confirmDeadline := testNow.Add(3 * 24 * time.Hour)
	uploaded := waitingTx("tx-1")
	uploaded.PaymentStatus = models.StatusWaitingConfirmation
	uploaded.ConfirmationDeadline = &confirmDeadline
	api.On("UploadPaymentProof", mock.Anything, "tx-1", "proof.png", mock.Anything).Return(&uploaded, nil)

	rmock.ExpectGet("txn:snapshot:tx-1").SetVal(cachedSnapshot(t, waitingTx("tx-1")))
	rmock.ExpectSetNX("txn:intent:tx-1", "upload_proof", intentGuardTTL).SetVal(true)
	rmock.Regexp().ExpectSet("txn:snapshot:tx-1", `.*"payment_status":"waiting_for_admin_confirmation".*`, time.Hour).SetVal("OK")
	rmock.ExpectSAdd("txn:pending", "tx-1").SetVal(0)
	rmock.ExpectDel("txn:intent:tx-1").SetVal(1)

	snap, err := svc.UploadProof(context.Background(), "tx-1", "proof.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitingConfirmation, snap.Transaction.PaymentStatus)
	require.NotNil(t, snap.Transaction.ConfirmationDeadline)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestTransactionService_Accept(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	confirming := waitingTx("tx-1")
	confirming.PaymentStatus = models.StatusWaitingConfirmation

	done := confirming
	confirmedAt := testNow
	done.PaymentStatus = models.StatusDone
	done.ConfirmedAt = &confirmedAt

	api.On("AcceptTransaction", mock.Anything, "tx-1").Return(nil)
	api.On("GetTransaction", mock.Anything, "tx-1").Return(&done, nil)

	rmock.ExpectGet("txn:snapshot:tx-1").SetVal(cachedSnapshot(t, confirming))
	rmock.ExpectSetNX("txn:intent:tx-1", "accept", intentGuardTTL).SetVal(true)
	rmock.Regexp().ExpectSet("txn:snapshot:tx-1", `.*"payment_status":"done".*`, time.Hour).SetVal("OK")
	rmock.ExpectSRem("txn:pending", "tx-1").SetVal(1)
	rmock.ExpectDel("txn:intent:tx-1").SetVal(1)

	snap, err := svc.Accept(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, snap.Transaction.PaymentStatus)
	assert.NotNil(t, snap.Transaction.ConfirmedAt)
}

func TestTransactionService_Accept_OnlyWhileWaitingConfirmation(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	rmock.ExpectGet("txn:snapshot:tx-1").SetVal(cachedSnapshot(t, waitingTx("tx-1")))

	_, err := svc.Accept(context.Background(), "tx-1")
	assert.ErrorIs(t, err, status.ErrIntentNotAllowed)
	api.AssertNotCalled(t, "AcceptTransaction", mock.Anything, mock.Anything)
}

func TestTransactionService_IntentFetchesWhenNotCached(t *testing.T) {
	api := new(mockAPI)
	svc, rmock := newTransactionService(api)

	confirming := waitingTx("tx-1")
	confirming.PaymentStatus = models.StatusWaitingConfirmation
	rejected := confirming
	rejected.PaymentStatus = models.StatusRejected

	api.On("GetTransaction", mock.Anything, "tx-1").Return(&confirming, nil).Once()
	api.On("RejectTransaction", mock.Anything, "tx-1").Return(nil)
	api.On("GetTransaction", mock.Anything, "tx-1").Return(&rejected, nil).Once()

	// no cached snapshot: the intent refreshes first
	rmock.ExpectGet("txn:snapshot:tx-1").RedisNil()
	rmock.ExpectGet("txn:snapshot:tx-1").RedisNil()
	rmock.Regexp().ExpectSet("txn:snapshot:tx-1", `.*`, time.Hour).SetVal("OK")
	rmock.ExpectSAdd("txn:pending", "tx-1").SetVal(1)
	rmock.ExpectSetNX("txn:intent:tx-1", "reject", intentGuardTTL).SetVal(true)
	rmock.Regexp().ExpectSet("txn:snapshot:tx-1", `.*"payment_status":"rejected".*`, time.Hour).SetVal("OK")
	rmock.ExpectSRem("txn:pending", "tx-1").SetVal(1)
	rmock.ExpectDel("txn:intent:tx-1").SetVal(1)

	snap, err := svc.Reject(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, snap.Transaction.PaymentStatus)
}
