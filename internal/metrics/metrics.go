package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	extracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "callbook",
			Name:      "transcripts_extracted_total",
			Help:      "Count of transcripts run through the field extractor.",
		},
	)

	enqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callbook",
			Name:      "drafts_enqueued_total",
			Help:      "Count of enqueue attempts by result.",
		},
		[]string{"result"},
	)

	committed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "callbook",
			Name:      "reservations_committed_total",
			Help:      "Count of drafts committed to the confirmed store.",
		},
	)

	commitFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "callbook",
			Name:      "commit_failures_total",
			Help:      "Count of confirmed-store writes that failed (draft dropped).",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "callbook",
			Name:      "pending_queue_depth",
			Help:      "Number of drafts currently waiting in the pending queue.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(extracted, enqueued, committed, commitFailures, queueDepth)
	})
}

func IncExtracted() {
	extracted.Inc()
}

// IncEnqueued records an enqueue attempt; result is "queued" or "rejected".
func IncEnqueued(result string) {
	enqueued.WithLabelValues(result).Inc()
}

func IncCommitted() {
	committed.Inc()
}

func IncCommitFailure() {
	commitFailures.Inc()
}

func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}
