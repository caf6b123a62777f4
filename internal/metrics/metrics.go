// Package metrics bundles the Prometheus instruments of a heatmap server.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan results used as the "result" label of ScansTotal.
const (
	ScanOK      = "ok"
	ScanNoLink  = "no_link"
	ScanFailure = "error"
)

// Collector holds the server metrics and serves them over HTTP.
// A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Renders        prometheus.Counter
	RenderDuration prometheus.Histogram
	Samples        prometheus.Gauge
	Clients        prometheus.Gauge
	Scans          *prometheus.CounterVec
	Dropped        *prometheus.CounterVec
}

// New registers the heatmap metrics against reg, defaulting to the global
// Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Renders, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heatmap_renders_total",
		Help: "Total number of heatmap frames rendered.",
	}), "heatmap_renders_total"); err != nil {
		return nil, err
	}
	if c.RenderDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "heatmap_render_duration_seconds",
		Help:    "Time spent rendering one heatmap frame, including PNG encoding.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "heatmap_render_duration_seconds"); err != nil {
		return nil, err
	}
	if c.Samples, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "heatmap_samples",
		Help: "Current number of samples in the store.",
	}), "heatmap_samples"); err != nil {
		return nil, err
	}
	if c.Clients, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "heatmap_ws_clients",
		Help: "Currently connected websocket clients.",
	}), "heatmap_ws_clients"); err != nil {
		return nil, err
	}
	if c.Scans, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "heatmap_scans_total",
		Help: "Signal scans performed, labeled by result.",
	}, []string{"result"}), "heatmap_scans_total"); err != nil {
		return nil, err
	}
	if c.Dropped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "heatmap_dropped_payloads_total",
		Help: "Inbound payloads dropped as malformed, labeled by event.",
	}, []string{"event"}), "heatmap_dropped_payloads_total"); err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveRender records one rendered frame.
func (c *Collector) ObserveRender(d time.Duration, samples int) {
	if c == nil {
		return
	}
	c.Renders.Inc()
	c.RenderDuration.Observe(d.Seconds())
	c.Samples.Set(float64(samples))
}

// SetClients records the number of connected clients.
func (c *Collector) SetClients(n int) {
	if c == nil {
		return
	}
	c.Clients.Set(float64(n))
}

// ObserveScan counts one scan with the given result.
func (c *Collector) ObserveScan(result string) {
	if c == nil {
		return
	}
	c.Scans.WithLabelValues(result).Inc()
}

// Drop counts one malformed payload of event.
func (c *Collector) Drop(event string) {
	if c == nil {
		return
	}
	c.Dropped.WithLabelValues(event).Inc()
}

// register adds col to reg, reusing an identical collector that is already
// registered under name.
func register[C prometheus.Collector](reg prometheus.Registerer, col C, name string) (C, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return col, nil
}
