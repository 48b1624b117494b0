// Package metrics exposes lifecycle, request and keeper metrics to
// Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	eventAmounts *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	keeperActs   *prometheus.CounterVec
	keeperHeight *prometheus.GaugeVec
}

var _ rollup.Publisher = &Recorder{}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricEventCount,
			Help: "Lifecycle events committed, by type.",
		}, []string{labelEventType}),
		eventAmounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricEventAmount,
			Help: "Value moved by lifecycle events, by type.",
		}, []string{labelEventType}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricRequestCount,
			Help: "API requests, by route and status code.",
		}, []string{labelRoute, labelCode}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricRequestLatency,
			Help:    "API request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{labelRoute}),
		keeperActs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricKeeperActs,
			Help: "Keeper actions, by keeper and result.",
		}, []string{labelKeeper, labelResult}),
		keeperHeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricKeeperHeight,
			Help: "Height of each keeper's last completed sweep.",
		}, []string{labelKeeper}),
	}

	r.registry.MustRegister(
		r.events,
		r.eventAmounts,
		r.requests,
		r.latency,
		r.keeperActs,
		r.keeperHeight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Publish counts a committed lifecycle event.
func (r *Recorder) Publish(_ context.Context, ev rollup.Event) error {
	r.events.WithLabelValues(string(ev.Type)).Inc()
	if ev.Amount > 0 {
		r.eventAmounts.WithLabelValues(string(ev.Type)).Add(float64(ev.Amount))
	}
	return nil
}

func (r *Recorder) RecordRequest(route string, code int, latency time.Duration) {
	r.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.latency.WithLabelValues(route).Observe(latency.Seconds())
}

func (r *Recorder) RecordKeeperAction(keeper, result string) {
	r.keeperActs.WithLabelValues(keeper, result).Inc()
}

func (r *Recorder) RecordKeeperHeight(keeper string, height uint64) {
	r.keeperHeight.WithLabelValues(keeper).Set(float64(height))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
