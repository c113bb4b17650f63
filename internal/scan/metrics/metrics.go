package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scan pipeline.
type Metrics struct {
	// Scan outcomes: success, not_found, bad_input, error
	ScanOutcome *prometheus.CounterVec

	// Engine attempts by engine, stage and status
	EngineAttempts *prometheus.CounterVec

	// Engine call latencies by engine
	EngineLatency *prometheus.HistogramVec

	// Solver trials per field
	SolverTrials *prometheus.HistogramVec

	// Whether the band was located or the fixed crop was used
	RegionSource *prometheus.CounterVec

	// Overall pipeline latency
	ScanLatency prometheus.Histogram

	// Pipelines currently running
	InFlight prometheus.Gauge
}

// New creates a new Metrics instance with all scan metrics registered.
func New() *Metrics {
	return &Metrics{
		ScanOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrzgate_scan_outcomes_total",
			Help: "Total scans by outcome",
		}, []string{"outcome"}),

		EngineAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrzgate_engine_attempts_total",
			Help: "Text-recognition engine attempts by engine, stage and status",
		}, []string{"engine", "stage", "status"}),

		EngineLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mrzgate_engine_duration_seconds",
			Help:    "Duration of text-recognition engine calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"engine"}),

		SolverTrials: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mrzgate_solver_trials",
			Help:    "Checksum solver trials per corrected field",
			Buckets: []float64{0, 1, 4, 16, 64, 256, 2000, 50000},
		}, []string{"field", "fixed"}),

		RegionSource: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrzgate_region_source_total",
			Help: "How the MRZ band was obtained: located or fallback crop",
		}, []string{"source"}),

		ScanLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mrzgate_scan_duration_seconds",
			Help:    "Duration of a full scan from decode to key derivation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		InFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mrzgate_scans_in_flight",
			Help: "Scans currently holding a pipeline slot",
		}),
	}
}

// IncrementOutcome records a scan outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.ScanOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveEngineAttempt records one engine call.
func (m *Metrics) ObserveEngineAttempt(engine, stage, status string, d time.Duration) {
	if m != nil {
		m.EngineAttempts.WithLabelValues(engine, stage, status).Inc()
		if d > 0 {
			m.EngineLatency.WithLabelValues(engine).Observe(d.Seconds())
		}
	}
}

// ObserveSolverTrials records how many trials the solver spent on a field.
func (m *Metrics) ObserveSolverTrials(field string, fixed bool, trials int) {
	if m != nil {
		label := "false"
		if fixed {
			label = "true"
		}
		m.SolverTrials.WithLabelValues(field, label).Observe(float64(trials))
	}
}

// IncrementRegionSource records how the band was obtained.
func (m *Metrics) IncrementRegionSource(source string) {
	if m != nil {
		m.RegionSource.WithLabelValues(source).Inc()
	}
}

// ObserveScanLatency records the total scan duration.
func (m *Metrics) ObserveScanLatency(d time.Duration) {
	if m != nil {
		m.ScanLatency.Observe(d.Seconds())
	}
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}
