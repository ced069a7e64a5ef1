package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_submissions_total",
			Help: "Order submissions by outcome",
		},
		[]string{"outcome"},
	)

	transactionIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_intents_total",
			Help: "Transaction intents issued, by kind and outcome",
		},
		[]string{"intent", "outcome"},
	)

	observedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observed_transitions_total",
			Help: "State transitions observed on refresh",
		},
		[]string{"from", "to"},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transaction_refresh_duration_seconds",
			Help:    "Duration of authoritative transaction re-fetches",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	activeWatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_transaction_watches",
			Help: "Transactions currently watched for deadline expiry",
		},
	)
)

func OrderSubmitted(outcome string) {
	orderSubmissions.WithLabelValues(outcome).Inc()
}

func IntentIssued(intent, outcome string) {
	transactionIntents.WithLabelValues(intent, outcome).Inc()
}

func TransitionObserved(from, to string) {
	observedTransitions.WithLabelValues(from, to).Inc()
}

func RefreshObserved(d time.Duration) {
	refreshDuration.Observe(d.Seconds())
}

func WatchStarted() { activeWatches.Inc() }
func WatchStopped() { activeWatches.Dec() }
