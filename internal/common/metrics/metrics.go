// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	TrustScorePredicted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trust_score_predicted",
			Help:    "Distribution of predicted trust scores",
			Buckets: prometheus.LinearBuckets(0, 100, 11),
		},
	)

	ModelTrainings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_model_trainings_total",
			Help: "Total number of trust model training runs",
		},
		[]string{"outcome"},
	)

	LenderMatchesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lender_matches_returned",
			Help:    "Number of lenders returned per matching request",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)
)
