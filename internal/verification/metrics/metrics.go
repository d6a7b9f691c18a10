package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
// Tracks submission volume, decision outcomes, and critical path durations.
type Metrics struct {
	SubmissionsCreated prometheus.Counter
	Decisions          *prometheus.CounterVec
	SubmitDuration     prometheus.Histogram
	DecideDuration     prometheus.Histogram
	QueueDepth         prometheus.Gauge
}

// New creates a Metrics instance with all verification module metrics
// registered. Call once per process; promauto registers globally.
func New() *Metrics {
	return &Metrics{
		SubmissionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worklink_submissions_created_total",
			Help: "Total number of verification submissions created",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worklink_submission_decisions_total",
			Help: "Total number of submission decisions by outcome",
		}, []string{"outcome"}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worklink_submit_duration_seconds",
			Help:    "Duration of Submit operations (blob write plus record create)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		DecideDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worklink_decide_duration_seconds",
			Help:    "Duration of Approve/Deny operations (admin review path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worklink_review_queue_depth",
			Help: "Pending submissions awaiting review, as of the last queue listing",
		}),
	}
}

// IncrementSubmissionsCreated records a successful submission.
func (m *Metrics) IncrementSubmissionsCreated() {
	m.SubmissionsCreated.Inc()
}

// IncrementDecision records a decision outcome ("approved" or "denied").
func (m *Metrics) IncrementDecision(outcome string) {
	m.Decisions.WithLabelValues(outcome).Inc()
}

// ObserveSubmit records the duration of a Submit operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// ObserveDecide records the duration of a decision operation.
func (m *Metrics) ObserveDecide(start time.Time) {
	m.DecideDuration.Observe(time.Since(start).Seconds())
}

// SetQueueDepth records the pending count observed by the review queue.
func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}
