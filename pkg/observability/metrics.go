package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a torsion scan run.
type Metrics struct {
	// Job lifecycle metrics
	JobsSubmitted prometheus.Counter
	JobsAccepted  prometheus.Counter
	JobsRejected  prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsDeduped   prometheus.Counter

	// Queue metrics
	QueueDepth      prometheus.Gauge
	DispatchLatency prometheus.Histogram

	// Grid metrics
	GridPointsConverged *prometheus.GaugeVec
	GridBestEnergy      *prometheus.GaugeVec
	GridUnreachable     prometheus.Gauge

	// Persistence metrics
	PersistedResults prometheus.Counter
	ReplayedResults  prometheus.Counter
	ReplayMismatches prometheus.Counter

	// HTTP driver facade metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics for a scan.
func NewMetrics() *Metrics {
	return &Metrics{
		JobsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_jobs_submitted_total",
			Help: "Total number of optimization jobs submitted to the engine.",
		}),
		JobsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_jobs_accepted_total",
			Help: "Total number of completed jobs that improved a grid point's best energy.",
		}),
		JobsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_jobs_rejected_total",
			Help: "Total number of completed jobs that did not improve on the current best.",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_jobs_failed_total",
			Help: "Total number of jobs reported as failed by the optimizer.",
		}),
		JobsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_jobs_deduped_total",
			Help: "Total number of jobs short-circuited from the task cache instead of submitted.",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "torsionscan_queue_depth",
			Help: "Current number of pending jobs in the priority queue.",
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "torsionscan_dispatch_latency_seconds",
			Help:    "Wall time spent in a single dispatch/collect cycle.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		}),
		GridPointsConverged: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "torsionscan_grid_points_converged",
			Help: "Number of grid points with a finite best energy, by dimension count.",
		}, []string{"dimensions"}),
		GridBestEnergy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "torsionscan_grid_best_energy",
			Help: "Best energy found at a given grid point, keyed by grid-id string.",
		}, []string{"grid_id"}),
		GridUnreachable: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "torsionscan_grid_unreachable",
			Help: "Number of grid points still at +Inf best energy after termination.",
		}),
		PersistedResults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_persisted_results_total",
			Help: "Total number of completed optimizations appended to the scan log.",
		}),
		ReplayedResults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_replayed_results_total",
			Help: "Total number of results replayed into the task cache on restart.",
		}),
		ReplayMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "torsionscan_replay_mismatches_total",
			Help: "Total number of cached results discarded on replay due to a configuration mismatch.",
		}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "torsionscan_api_requests_total",
			Help: "Total number of driver facade HTTP requests by route and status.",
		}, []string{"route", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "torsionscan_api_request_duration_seconds",
			Help:    "Driver facade HTTP request duration in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route"}),
		RequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "torsionscan_api_request_errors_total",
			Help: "Total number of driver facade HTTP errors by route and error type.",
		}, []string{"route", "error_type"}),
	}
}

// RecordSubmit records a job submission.
func (m *Metrics) RecordSubmit() {
	m.JobsSubmitted.Inc()
}

// RecordDeduped records a job short-circuited from the task cache.
func (m *Metrics) RecordDeduped() {
	m.JobsDeduped.Inc()
}

// RecordAccepted records a job that improved a grid point's best energy.
func (m *Metrics) RecordAccepted(gridID string, energy float64) {
	m.JobsAccepted.Inc()
	m.GridBestEnergy.WithLabelValues(gridID).Set(energy)
}

// RecordRejected records a job that did not improve on the current best.
func (m *Metrics) RecordRejected() {
	m.JobsRejected.Inc()
}

// RecordFailed records a job reported as failed by the optimizer.
func (m *Metrics) RecordFailed() {
	m.JobsFailed.Inc()
}

// RecordDispatch records the wall time of a dispatch/collect cycle.
func (m *Metrics) RecordDispatch(d time.Duration) {
	m.DispatchLatency.Observe(d.Seconds())
}

// SetQueueDepth sets the current pending job queue depth.
func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

// SetConvergence records the final converged/unreachable grid point counts.
func (m *Metrics) SetConvergence(dimensions string, converged, unreachable int) {
	m.GridPointsConverged.WithLabelValues(dimensions).Set(float64(converged))
	m.GridUnreachable.Set(float64(unreachable))
}

// RecordPersisted records a completed optimization appended to the scan log.
func (m *Metrics) RecordPersisted() {
	m.PersistedResults.Inc()
}

// RecordReplayed records a result replayed into the task cache on restart.
func (m *Metrics) RecordReplayed() {
	m.ReplayedResults.Inc()
}

// RecordReplayMismatch records a cache entry discarded due to a configuration mismatch.
func (m *Metrics) RecordReplayMismatch() {
	m.ReplayMismatches.Inc()
}

// RecordRequest records an HTTP request on the driver facade.
func (m *Metrics) RecordRequest(route, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRequestError records an HTTP error on the driver facade.
func (m *Metrics) RecordRequestError(route, errorType string) {
	m.RequestErrors.WithLabelValues(route, errorType).Inc()
}
