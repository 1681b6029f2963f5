// Package metrics provides Prometheus instrumentation for the gateway and
// the effect dispatcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface consumed by the gateway and dispatcher.
// It keeps the instrumented packages independent of the Prometheus types.
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	RoomCount(n int)
	RecordBroadcast(event string)
	RecordDroppedFrame()
	RecordEffect(kind string, succeeded bool)
}

// Collector implements Recorder backed by Prometheus metrics.
type Collector struct {
	connections   prometheus.Gauge
	rooms         prometheus.Gauge
	broadcasts    *prometheus.CounterVec
	droppedFrames prometheus.Counter
	effects       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with the
// provided registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "choreboard_ws_connections",
			Help: "Number of live WebSocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "choreboard_ws_rooms",
			Help: "Number of rooms with at least one subscriber.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "choreboard_ws_broadcasts_total",
			Help: "Room broadcasts by event type.",
		}, []string{"event"}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "choreboard_ws_dropped_frames_total",
			Help: "Outbound frames dropped because a client send buffer was full.",
		}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "choreboard_effects_total",
			Help: "Dispatched effects by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		c.connections,
		c.rooms,
		c.broadcasts,
		c.droppedFrames,
		c.effects,
	)

	return c
}

// ConnectionOpened increments the live connection gauge.
func (c *Collector) ConnectionOpened() { c.connections.Inc() }

// ConnectionClosed decrements the live connection gauge.
func (c *Collector) ConnectionClosed() { c.connections.Dec() }

// RoomCount sets the current number of non-empty rooms.
func (c *Collector) RoomCount(n int) { c.rooms.Set(float64(n)) }

// RecordBroadcast counts one room broadcast for the given event type.
func (c *Collector) RecordBroadcast(event string) {
	c.broadcasts.WithLabelValues(event).Inc()
}

// RecordDroppedFrame counts a frame dropped on a full send buffer.
func (c *Collector) RecordDroppedFrame() { c.droppedFrames.Inc() }

// RecordEffect counts one dispatched effect by kind and outcome.
func (c *Collector) RecordEffect(kind string, succeeded bool) {
	outcome := "ok"
	if !succeeded {
		outcome = "error"
	}
	c.effects.WithLabelValues(kind, outcome).Inc()
}

// Handler returns the HTTP handler serving the /metrics scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop is a Recorder that records nothing. Used in tests and wherever
// instrumentation is optional.
type Nop struct{}

func (Nop) ConnectionOpened()         {}
func (Nop) ConnectionClosed()         {}
func (Nop) RoomCount(int)             {}
func (Nop) RecordBroadcast(string)    {}
func (Nop) RecordDroppedFrame()       {}
func (Nop) RecordEffect(string, bool) {}
