// Package metrics exposes seawatch counters as Prometheus gauges.
// Counters are plain atomics so hot paths never touch the collector.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all seawatch metrics. The watch agent and the detection
// service each populate the fields relevant to them.
type Metrics struct {
	// Watch loop counters
	Ticks           atomic.Uint64
	TickFailures    atomic.Uint64
	StaleCommits    atomic.Uint64
	DetectionsDrawn atomic.Uint64
	FramesPublished atomic.Uint64
	TickLatencyMs   atomic.Uint64

	// Stream fanout
	StreamClients atomic.Uint64
	FramesDropped atomic.Uint64

	// Detection service counters
	DetectRequests     atomic.Uint64
	DetectBusy         atomic.Uint64
	DetectFailures     atomic.Uint64
	DetectionsReturned atomic.Uint64
	InferenceLatencyMs atomic.Uint64
	RowsStored         atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"seawatch_ticks_total", "Total detection loop ticks started", m.Ticks.Load},
		{"seawatch_tick_failures_total", "Ticks aborted by capture, transport or decode failure", m.TickFailures.Load},
		{"seawatch_stale_commits_dropped_total", "Tick results dropped by the sequence guard", m.StaleCommits.Load},
		{"seawatch_detections_drawn_total", "Detections rendered onto the surface", m.DetectionsDrawn.Load},
		{"seawatch_frames_published_total", "Annotated frames published to subscribers", m.FramesPublished.Load},
		{"seawatch_tick_latency_ms", "Duration of the last completed tick in milliseconds", m.TickLatencyMs.Load},
		{"seawatch_stream_clients", "Connected stream subscribers", m.StreamClients.Load},
		{"seawatch_stream_frames_dropped_total", "Frames dropped on slow subscribers", m.FramesDropped.Load},
		{"seawatch_detect_requests_total", "Detection requests received", m.DetectRequests.Load},
		{"seawatch_detect_busy_total", "Detection requests rejected by the busy gate", m.DetectBusy.Load},
		{"seawatch_detect_failures_total", "Detection requests that failed", m.DetectFailures.Load},
		{"seawatch_detections_returned_total", "Detections returned to clients", m.DetectionsReturned.Load},
		{"seawatch_inference_latency_ms", "Duration of the last inference in milliseconds", m.InferenceLatencyMs.Load},
		{"seawatch_rows_stored_total", "Detection rows persisted to the store", m.RowsStored.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// ObserveTick stores the latency of a completed tick.
func (m *Metrics) ObserveTick(start time.Time) {
	m.TickLatencyMs.Store(uint64(time.Since(start).Milliseconds()))
}

// ObserveInference stores the latency of a completed inference.
func (m *Metrics) ObserveInference(d time.Duration) {
	m.InferenceLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
