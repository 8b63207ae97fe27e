// Package observability collects and exposes Prometheus metrics for the
// real-time core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and updates the core metrics. A nil *Collector is a
// valid no-op receiver so components can run unmetered in tests.
type Collector struct {
	channelsOpen     prometheus.Gauge
	eventsRouted     *prometheus.CounterVec
	eventsRejected   prometheus.Counter
	fanoutDelivered  prometheus.Counter
	fanoutDropped    prometheus.Counter
	presenceChanges  prometheus.Counter
	fallbackRequests prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on the given
// registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		channelsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wfc_channels_open",
			Help: "Number of currently open real-time channels.",
		}),
		eventsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wfc_events_routed_total",
			Help: "Inbound channel events routed to domain operations, by kind.",
		}, []string{"kind"}),
		eventsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfc_events_rejected_total",
			Help: "Inbound channel events rejected before reaching storage.",
		}),
		fanoutDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfc_fanout_delivered_total",
			Help: "Events delivered to individual channel sinks.",
		}),
		fanoutDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfc_fanout_dropped_total",
			Help: "Per-sink deliveries dropped on timeout or full buffer.",
		}),
		presenceChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfc_presence_transitions_total",
			Help: "Principal present/absent transitions.",
		}),
		fallbackRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfc_fallback_requests_total",
			Help: "Synchronous REST mutations used instead of a live channel.",
		}),
	}

	reg.MustRegister(
		c.channelsOpen,
		c.eventsRouted,
		c.eventsRejected,
		c.fanoutDelivered,
		c.fanoutDropped,
		c.presenceChanges,
		c.fallbackRequests,
	)
	return c
}

func (c *Collector) ChannelOpened() {
	if c == nil {
		return
	}
	c.channelsOpen.Inc()
}

func (c *Collector) ChannelClosed() {
	if c == nil {
		return
	}
	c.channelsOpen.Dec()
}

func (c *Collector) EventRouted(kind string) {
	if c == nil {
		return
	}
	c.eventsRouted.WithLabelValues(kind).Inc()
}

func (c *Collector) EventRejected() {
	if c == nil {
		return
	}
	c.eventsRejected.Inc()
}

func (c *Collector) Delivered() {
	if c == nil {
		return
	}
	c.fanoutDelivered.Inc()
}

func (c *Collector) DeliveryDropped() {
	if c == nil {
		return
	}
	c.fanoutDropped.Inc()
}

func (c *Collector) PresenceTransition() {
	if c == nil {
		return
	}
	c.presenceChanges.Inc()
}

func (c *Collector) FallbackRequest() {
	if c == nil {
		return
	}
	c.fallbackRequests.Inc()
}
