// Package metrics exposes roamwatch counters to Prometheus.
//
// Bus, ingress and engine counters are read at scrape time through
// CounterFunc/GaugeFunc collectors, so the hot paths keep their plain atomic
// counters. Outcomes and signal quality are pushed.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/engine"
)

const namespace = "roamwatch"

// BusSource is the part of *bus.Bus that metrics read.
type BusSource interface {
	Stats() bus.Stats
	Pending() int
}

// IngressSource is the part of *bus.Ingress that metrics read.
type IngressSource interface {
	Dropped() uint64
	DecodeErrors() uint64
	Len() int
}

// EngineSource is the part of *engine.Engine that metrics read.
type EngineSource interface {
	Stats() engine.Stats
	State() engine.State
}

// Metrics owns a private registry. Nothing is registered globally.
type Metrics struct {
	reg *prometheus.Registry
	f   promauto.Factory

	outcomes      *prometheus.CounterVec
	signalQuality prometheus.Gauge
	signalRSSI    prometheus.Gauge
}

// New creates the registry with the pushed collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		f:   f,
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Classified roams and reconnects by result",
			},
			[]string{"kind", "result"},
		),
		signalQuality: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_quality_percent",
			Help:      "Last reported signal quality (0-100)",
		}),
		signalRSSI: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_rssi_dbm",
			Help:      "RSSI estimated from the last signal quality",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveOutcome counts an outcome. Matches the engine outcome hook
// signature.
func (m *Metrics) ObserveOutcome(_ int64, o engine.Outcome) {
	m.outcomes.WithLabelValues(o.Kind.String(), o.Result.String()).Inc()
}

// SetSignal records the latest signal quality and its RSSI estimate.
func (m *Metrics) SetSignal(quality uint32, rssi int) {
	m.signalQuality.Set(float64(quality))
	m.signalRSSI.Set(float64(rssi))
}

// RegisterBus exposes bus counters.
func (m *Metrics) RegisterBus(b BusSource) {
	m.counterFunc("bus_published_total", "Events published on the bus",
		func() uint64 { return b.Stats().Published })
	m.counterFunc("bus_delivered_total", "Deliveries queued to subscribers",
		func() uint64 { return b.Stats().Delivered })
	m.counterFunc("bus_dropped_total", "Deliveries dropped from full subscriber queues",
		func() uint64 { return b.Stats().Dropped })
	m.f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bus_subscribers",
		Help:      "Active bus subscriptions",
	}, func() float64 { return float64(b.Stats().Subscribers) })
	m.f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bus_pending",
		Help:      "Unread deliveries across all subscriptions",
	}, func() float64 { return float64(b.Pending()) })
}

// RegisterIngress exposes ingress counters.
func (m *Metrics) RegisterIngress(in IngressSource) {
	m.counterFunc("ingress_dropped_total", "Notifications dropped because the ingress queue was full",
		in.Dropped)
	m.counterFunc("ingress_decode_errors_total", "Platform notifications that could not be decoded",
		in.DecodeErrors)
	m.f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingress_queued",
		Help:      "Notifications waiting in the ingress queue",
	}, func() float64 { return float64(in.Len()) })
}

// RegisterEngine exposes engine counters and whether a correlation is in
// progress.
func (m *Metrics) RegisterEngine(e EngineSource) {
	m.counterFunc("engine_events_total", "Events folded by the correlation engine",
		func() uint64 { return e.Stats().Events })
	m.counterFunc("engine_transitions_total", "Events that drove a state transition",
		func() uint64 { return e.Stats().Transitions })
	m.counterFunc("engine_invariant_violations_total", "Correlation invariant violations",
		func() uint64 { return e.Stats().Violations })
	m.counterFunc("engine_stale_resets_total", "Correlations reset after the stale timeout",
		func() uint64 { return e.Stats().StaleResets })
	m.counterFunc("engine_missed_total", "Events the engine lost to bus overflow",
		func() uint64 { return e.Stats().Missed })
	m.f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "engine_correlating",
		Help:      "1 while a roam or reconnect is in progress",
	}, func() float64 {
		if engine.IsIdle(e.State()) {
			return 0
		}
		return 1
	})
}

func (m *Metrics) counterFunc(name, help string, fn func() uint64) {
	m.f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(fn()) })
}
