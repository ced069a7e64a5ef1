package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-engine/internal/readmodel"
	"ticket-engine/internal/status"
	"ticket-engine/models"
	"ticket-engine/monitoring"
)

const intentGuardTTL = 30 * time.Second

// TransactionService issues lifecycle intents and keeps the read model in
// sync. Every intent is followed by an authoritative re-fetch; the engine
// never flips a state locally on the optimistic assumption that an intent
// succeeded.
type TransactionService struct {
	api       MarketplaceAPI
	snapshots *readmodel.Store
	redis     *redis.Client
	now       func() time.Time
}

func NewTransactionService(api MarketplaceAPI, snapshots *readmodel.Store, redisClient *redis.Client) *TransactionService {
	return &TransactionService{
		api:       api,
		snapshots: snapshots,
		redis:     redisClient,
		now:       time.Now,
	}
}

// Refresh re-reads the authoritative record and replaces the cached snapshot
// wholesale. A response carrying a different transaction id is discarded.
func (s *TransactionService) Refresh(ctx context.Context, id string) (*readmodel.Snapshot, error) {
	started := s.now()

	tx, err := s.api.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.ID != id {
		return nil, status.ErrStaleResponse
	}

	if prev, err := s.snapshots.Get(ctx, id); err == nil && prev.Transaction.PaymentStatus != tx.PaymentStatus {
		from, to := prev.Transaction.PaymentStatus, tx.PaymentStatus
		monitoring.TransitionObserved(string(from), string(to))
		if !models.CanTransition(from, to) {
			slog.Warn("backend reported a transition our table does not allow",
				"transaction_id", id, "from", from, "to", to)
		}
	}

	fetchedAt := s.now()
	if err := s.snapshots.Put(ctx, tx, fetchedAt); err != nil {
		return nil, fmt.Errorf("cache snapshot: %w", err)
	}

	monitoring.RefreshObserved(s.now().Sub(started))
	return &readmodel.Snapshot{Transaction: *tx, FetchedAt: fetchedAt}, nil
}

// UploadProof sends the buyer's payment proof. Valid only while the
// transaction waits for payment.
func (s *TransactionService) UploadProof(ctx context.Context, id, filename string, file io.Reader) (*readmodel.Snapshot, error) {
	return s.intent(ctx, id, "upload_proof", models.StatusWaitingForPayment, func() (*models.Transaction, error) {
		return s.api.UploadPaymentProof(ctx, id, filename, file)
	})
}

// Cancel withdraws the order. Valid only while the transaction waits for
// payment; the backend performs the compensating rollback.
func (s *TransactionService) Cancel(ctx context.Context, id string) (*readmodel.Snapshot, error) {
	return s.intent(ctx, id, "cancel", models.StatusWaitingForPayment, func() (*models.Transaction, error) {
		return s.api.CancelTransaction(ctx, id)
	})
}

// Accept is the organizer's confirmation. Valid only while the transaction
// waits for admin confirmation.
func (s *TransactionService) Accept(ctx context.Context, id string) (*readmodel.Snapshot, error) {
	return s.intent(ctx, id, "accept", models.StatusWaitingConfirmation, func() (*models.Transaction, error) {
		if err := s.api.AcceptTransaction(ctx, id); err != nil {
			return nil, err
		}
		return s.api.GetTransaction(ctx, id)
	})
}

// Reject is the organizer's refusal; the backend rolls the consumed
// resources back.
func (s *TransactionService) Reject(ctx context.Context, id string) (*readmodel.Snapshot, error) {
	return s.intent(ctx, id, "reject", models.StatusWaitingConfirmation, func() (*models.Transaction, error) {
		if err := s.api.RejectTransaction(ctx, id); err != nil {
			return nil, err
		}
		return s.api.GetTransaction(ctx, id)
	})
}

// intent runs one lifecycle intent: check the intent is valid in the locally
// known state, take the per-transaction in-flight guard so contradictory
// intents cannot overlap, issue it, and re-fetch authoritatively.
func (s *TransactionService) intent(ctx context.Context, id, kind string, requires models.PaymentStatus, call func() (*models.Transaction, error)) (*readmodel.Snapshot, error) {
	snap, err := s.snapshots.Get(ctx, id)
	if errors.Is(err, readmodel.ErrNotFound) {
		if snap, err = s.Refresh(ctx, id); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	if snap.Transaction.PaymentStatus != requires {
		monitoring.IntentIssued(kind, "not_allowed")
		return nil, fmt.Errorf("%w: %s requires %s, have %s",
			status.ErrIntentNotAllowed, kind, requires, snap.Transaction.PaymentStatus)
	}

	release, err := s.acquireIntentGuard(ctx, id, kind)
	if err != nil {
		monitoring.IntentIssued(kind, "blocked")
		return nil, err
	}
	defer release()

	tx, err := call()
	if err != nil {
		monitoring.IntentIssued(kind, "failed")
		// conflict or transient: the authoritative state may have moved on,
		// refresh so the caller renders truth rather than the stale snapshot
		if _, refreshErr := s.Refresh(ctx, id); refreshErr != nil {
			slog.Warn("refresh after failed intent", "transaction_id", id, "error", refreshErr)
		}
		return nil, err
	}
	if tx.ID != id {
		monitoring.IntentIssued(kind, "stale")
		return nil, status.ErrStaleResponse
	}

	fetchedAt := s.now()
	if err := s.snapshots.Put(ctx, tx, fetchedAt); err != nil {
		return nil, fmt.Errorf("cache snapshot: %w", err)
	}

	monitoring.IntentIssued(kind, "ok")
	return &readmodel.Snapshot{Transaction: *tx, FetchedAt: fetchedAt}, nil
}

// acquireIntentGuard takes a short-lived redis lock keyed by transaction id.
// Two engine processes may act on the same transaction, so the guard cannot
// be an in-process mutex.
func (s *TransactionService) acquireIntentGuard(ctx context.Context, id, kind string) (func(), error) {
	key := "txn:intent:" + id
	ok, err := s.redis.SetNX(ctx, key, kind, intentGuardTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("intent guard: %w", err)
	}
	if !ok {
		return nil, status.ErrIntentInFlight
	}
	return func() {
		if err := s.redis.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			slog.Warn("release intent guard", "transaction_id", id, "error", err)
		}
	}, nil
}
