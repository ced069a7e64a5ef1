package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	pubnub "github.com/pubnub/go/v7"

	"ticket-engine/internal/readmodel"
	"ticket-engine/models"
	"ticket-engine/monitoring"
)

// refresher is the slice of TransactionService the watcher needs.
type refresher interface {
	Refresh(ctx context.Context, id string) (*readmodel.Snapshot, error)
}

// WatchService re-fetches transactions when something may have changed: a
// deadline elapsed or the backend pushed a notification. Countdowns are
// advisory; a timer firing never transitions state by itself, it only
// triggers the re-fetch that reveals the authoritative state.
type WatchService struct {
	transactions refresher
	snapshots    *readmodel.Store
	scheduler    gocron.Scheduler
	pn           *pubnub.PubNub
	channel      string

	// grace gives the backend time to run its own expiry before we look.
	grace time.Duration

	mu   sync.Mutex
	jobs map[string]gocron.Job
}

func NewWatchService(transactions refresher, snapshots *readmodel.Store, pn *pubnub.PubNub, channel string, grace time.Duration) (*WatchService, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &WatchService{
		transactions: transactions,
		snapshots:    snapshots,
		scheduler:    scheduler,
		pn:           pn,
		channel:      channel,
		grace:        grace,
		jobs:         make(map[string]gocron.Job),
	}, nil
}

// Start runs the scheduler and, when a pubnub client is configured,
// subscribes to the backend's transaction channel.
func (s *WatchService) Start(ctx context.Context) {
	s.scheduler.Start()
	if s.pn != nil {
		go s.listen(ctx)
	}
}

func (s *WatchService) Shutdown() error {
	if s.pn != nil {
		s.pn.Unsubscribe().Channels([]string{s.channel}).Execute()
	}
	return s.scheduler.Shutdown()
}

// Watch arms a one-shot refresh at the transaction's active deadline.
// Terminal or deadline-free transactions are unwatched instead.
func (s *WatchService) Watch(ctx context.Context, tx *models.Transaction) {
	deadline := tx.ActiveDeadline()
	if tx.PaymentStatus.IsTerminal() || deadline.IsZero() {
		s.Unwatch(tx.ID)
		return
	}

	fireAt := deadline.Add(s.grace)
	if !fireAt.After(time.Now()) {
		// deadline already elapsed while we were not looking; any job armed
		// for the old deadline would fire redundantly, drop it
		s.Unwatch(tx.ID)
		go s.refresh(ctx, tx.ID)
		return
	}

	s.armAt(ctx, tx.ID, fireAt)
	slog.Info("watching transaction deadline", "transaction_id", tx.ID, "fire_at", fireAt)
}

// armAt schedules a one-shot refresh for the transaction, replacing any job
// already armed for it.
func (s *WatchService) armAt(ctx context.Context, id string, fireAt time.Time) {
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(fireAt)),
		gocron.NewTask(func() { s.refresh(ctx, id) }),
	)
	if err != nil {
		slog.Error("schedule deadline watch", "transaction_id", id, "error", err)
		return
	}

	s.mu.Lock()
	if old, ok := s.jobs[id]; ok {
		_ = s.scheduler.RemoveJob(old.ID())
	} else {
		monitoring.WatchStarted()
	}
	s.jobs[id] = job
	s.mu.Unlock()
}

// Unwatch drops the deadline job, e.g. when the hosting view goes away or
// the transaction left the time-boxed state.
func (s *WatchService) Unwatch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		_ = s.scheduler.RemoveJob(job.ID())
		delete(s.jobs, id)
		monitoring.WatchStopped()
	}
}

// Restore re-arms watches for every pending snapshot, refreshing each first
// so deadlines that elapsed while the engine was down resolve immediately.
func (s *WatchService) Restore(ctx context.Context) {
	ids, err := s.snapshots.PendingIDs(ctx)
	if err != nil {
		slog.Error("restore watches", "error", err)
		return
	}
	for _, id := range ids {
		s.refresh(ctx, id)
	}
	slog.Info("restored transaction watches", "count", len(ids))
}

// refreshRetryDelay spaces out re-fetch attempts after a failed refresh.
const refreshRetryDelay = 5 * time.Second

// refresh re-fetches one transaction and re-arms or drops its watch based on
// the state that came back.
func (s *WatchService) refresh(ctx context.Context, id string) {
	snap, err := s.transactions.Refresh(ctx, id)
	if err != nil {
		// the one-shot job already fired; a transient backend failure must
		// not drop the watch, so arm a retry
		slog.Warn("refresh watched transaction", "transaction_id", id, "error", err)
		s.armAt(ctx, id, time.Now().Add(refreshRetryDelay))
		return
	}
	s.Unwatch(id)
	s.Watch(ctx, &snap.Transaction)
}

// transactionNotice is the push payload the backend publishes whenever it
// mutates a transaction.
type transactionNotice struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

func (s *WatchService) listen(ctx context.Context) {
	listener := pubnub.NewListener()
	s.pn.AddListener(listener)
	s.pn.Subscribe().Channels([]string{s.channel}).Execute()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-listener.Message:
			var notice transactionNotice
			data, err := json.Marshal(msg.Message)
			if err != nil {
				continue
			}
			if err := json.Unmarshal(data, &notice); err != nil || notice.TransactionID == "" {
				slog.Warn("unparseable transaction notice", "channel", msg.Channel)
				continue
			}
			// the notice's status is a hint only; the refresh is the source
			// of truth
			s.refresh(ctx, notice.TransactionID)
		case status := <-listener.Status:
			slog.Debug("pubnub status", "category", status.Category)
		}
	}
}
