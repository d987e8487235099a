package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/backlogcast/backlogcast/server/internal/store"
)

const namespace = "backlogcast"

// Reload outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeCorrupt     = "corrupt"
	OutcomeError       = "error"
)

// Estimation outcome label values.
const (
	EstimateOK      = "ok"
	EstimateInvalid = "invalid"
	EstimateFailed  = "failed"
	EstimateDecided = "already_processed"
)

// Metrics provides observability for snapshot reloads, estimations and the HTTP API.
type Metrics struct {
	// Snapshot reloads by outcome
	Reloads *prometheus.CounterVec

	// Time spent reading and normalizing the snapshot file
	ReloadDuration prometheus.Histogram

	// Records in the most recently loaded snapshot
	Records prometheus.Gauge

	// Estimation requests by outcome
	Estimations *prometheus.CounterVec

	// HTTP requests by route pattern and status code
	Requests *prometheus.CounterVec

	reg *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Snapshot reloads by outcome",
		}, []string{"outcome"}),

		ReloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_reload_duration_seconds",
			Help:      "Duration of snapshot file decoding and normalization",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Normalized records held by the current snapshot",
		}),

		Estimations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimations_total",
			Help:      "Completion estimates by outcome",
		}, []string{"outcome"}),

		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),

		reg: reg,
	}
}

// ObserveReload records a snapshot reload. It satisfies store.Observer.
func (m *Metrics) ObserveReload(elapsed time.Duration, records int, err error) {
	if m == nil {
		return
	}
	m.ReloadDuration.Observe(elapsed.Seconds())
	m.Reloads.WithLabelValues(reloadOutcome(err)).Inc()
	if err == nil {
		m.Records.Set(float64(records))
	}
}

// IncEstimation records an estimation outcome.
func (m *Metrics) IncEstimation(outcome string) {
	if m != nil {
		m.Estimations.WithLabelValues(outcome).Inc()
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m != nil {
		m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func reloadOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, store.ErrDataUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, store.ErrDataCorrupt):
		return OutcomeCorrupt
	default:
		return OutcomeError
	}
}
