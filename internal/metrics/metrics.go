// Package metrics holds the Prometheus collectors of the notifier.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	DeliveryTotal    *prometheus.CounterVec
	DeliveryAttempts prometheus.Counter
	UpdateChecks     *prometheus.CounterVec
	GeoLookups       *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		DispatchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgnotifier_dispatch_total",
				Help: "Dispatched events by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		DispatchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tgnotifier_dispatch_duration_seconds",
				Help:    "Duration of one dispatch in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		DeliveryTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgnotifier_delivery_total",
				Help: "sendMessage results by result kind",
			},
			[]string{"result"},
		),
		DeliveryAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "tgnotifier_delivery_attempts_total",
			Help: "Batch delivery attempts, retries included",
		}),
		UpdateChecks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgnotifier_update_checks_total",
				Help: "Update checks by result",
			},
			[]string{"result"},
		),
		GeoLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgnotifier_geo_lookups_total",
				Help: "IP geolocation lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveDispatch(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(kind, outcome).Inc()
	m.DispatchDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) ObserveAttempt(int) {
	if m == nil {
		return
	}
	m.DeliveryAttempts.Inc()
}

func (m *Metrics) ObserveDelivery(result string) {
	if m == nil {
		return
	}
	m.DeliveryTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveUpdateCheck(result string) {
	if m == nil {
		return
	}
	m.UpdateChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveGeoLookup(result string) {
	if m == nil {
		return
	}
	m.GeoLookups.WithLabelValues(result).Inc()
}
