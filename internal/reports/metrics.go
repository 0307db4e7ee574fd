package reports

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "opsportal"

// Submission outcomes.
const (
	outcomeCommitted  = "committed"
	outcomeRolledBack = "rolled_back"
	outcomeRejected   = "rejected"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "submissions_total",
			Help:      "Downtime report submissions by terminal outcome",
		},
		[]string{"outcome"},
	)

	submissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "submission_duration_seconds",
			Help:      "Time from receipt to terminal outcome",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)

	categoryRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "category_rows_written_total",
			Help:      "Category rows committed across all submissions",
		},
	)
)

func recordSubmission(outcome string, d time.Duration) {
	submissionsTotal.WithLabelValues(outcome).Inc()
	submissionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func recordCategoryRows(n int) {
	categoryRowsWritten.Add(float64(n))
}
