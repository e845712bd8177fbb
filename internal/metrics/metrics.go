// Package metrics exposes Prometheus collectors for the signal pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sleepywoodpecker/myo-goes-live/internal/device"
)

const namespace = "myo"

type Metrics struct {
	registry *prometheus.Registry

	samplesTotal     *prometheus.CounterVec
	correctionsTotal *prometheus.CounterVec
	gesturesTotal    *prometheus.CounterVec
	recorderDropped  prometheus.Counter
	exportsTotal     *prometheus.CounterVec
	battery          prometheus.Gauge
	rssi             prometheus.Gauge
	connected        prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers every collector on a private registry so several instances
// can coexist in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples applied to the signal buffers by stream.",
		}, []string{"stream"}),
		correctionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_corrections_total",
			Help:      "Incoming events that had to be coerced at the boundary.",
		}, []string{"stream"}),
		gesturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Gesture events received by name.",
		}, []string{"gesture"}),
		recorderDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_dropped_total",
			Help:      "Samples dropped because the recorder queue was full.",
		}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Statistics exports by exporter and result.",
		}, []string{"exporter", "result"}),
		battery: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_level_percent",
			Help:      "Last reported battery level.",
		}),
		rssi: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rssi_dbm",
			Help:      "Last reported signal strength.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while the armband feed is connected.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.samplesTotal,
		m.correctionsTotal,
		m.gesturesTotal,
		m.recorderDropped,
		m.exportsTotal,
		m.battery,
		m.rssi,
		m.connected,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SampleApplied(stream string) {
	m.samplesTotal.WithLabelValues(stream).Inc()
}

func (m *Metrics) SampleCorrected(stream string) {
	m.correctionsTotal.WithLabelValues(stream).Inc()
}

func (m *Metrics) GestureReceived(name string) {
	m.gesturesTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) RecorderDropped() {
	m.recorderDropped.Inc()
}

func (m *Metrics) ExportDone(exporter string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.exportsTotal.WithLabelValues(exporter, result).Inc()
}

func (m *Metrics) DeviceStatus(s device.Status) {
	m.battery.Set(float64(s.BatteryLevel))
	m.rssi.Set(float64(s.RSSI))
	if s.Connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
