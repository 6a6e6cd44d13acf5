package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the sync loop.
type Metrics struct {
	// CyclesTotal counts finished cycles by result (ok, empty, error).
	CyclesTotal *prometheus.CounterVec

	// BookingsChanged counts staged records by kind (added, updated).
	BookingsChanged *prometheus.CounterVec

	// BookingsSkipped counts listed identifiers whose fetch returned nothing.
	BookingsSkipped prometheus.Counter

	// SnapshotSize is the number of records in the last written snapshot.
	SnapshotSize prometheus.Gauge

	// CycleDuration is the wall time of a cycle.
	CycleDuration prometheus.Histogram

	// LastSuccess is the unix time of the last cycle that wrote the snapshot.
	LastSuccess prometheus.Gauge

	// MirrorErrors counts failed mirror updates by mirror name.
	MirrorErrors *prometheus.CounterVec

	// EventHandlerErrors counts event handlers that returned an error.
	EventHandlerErrors prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_cycles_total",
				Help:      "Count of sync cycles by result.",
			},
			[]string{"result"},
		),
		BookingsChanged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_changed_total",
				Help:      "Count of bookings staged into the snapshot by kind.",
			},
			[]string{"kind"},
		),
		BookingsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_skipped_total",
				Help:      "Count of listed bookings whose record could not be fetched.",
			},
		),
		SnapshotSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_bookings",
				Help:      "Number of bookings in the last written snapshot.",
			},
		),
		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_cycle_duration_seconds",
				Help:      "Time to run one sync cycle.",
				Buckets:   []float64{.05, .1, .5, 1, 2, 5, 10, 30},
			},
		),
		LastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last cycle that wrote the snapshot.",
			},
		),
		MirrorErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mirror_errors_total",
				Help:      "Count of failed mirror updates.",
			},
			[]string{"mirror"},
		),
		EventHandlerErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_handler_errors_total",
				Help:      "Count of failed booking event handlers.",
			},
		),
	}
}

func (m *Metrics) IncCycle(result string) {
	m.CyclesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncChanged(kind string) {
	m.BookingsChanged.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSkipped() {
	m.BookingsSkipped.Inc()
}

func (m *Metrics) IncMirrorError(name string) {
	m.MirrorErrors.WithLabelValues(name).Inc()
}

func (m *Metrics) AddHandlerErrors(n int) {
	m.EventHandlerErrors.Add(float64(n))
}

// ObserveWrite records a successful snapshot write.
func (m *Metrics) ObserveWrite(size int, at time.Time) {
	m.SnapshotSize.Set(float64(size))
	m.LastSuccess.Set(float64(at.Unix()))
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	m.CycleDuration.Observe(d.Seconds())
}
