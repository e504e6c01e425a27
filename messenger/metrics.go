package messenger

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch modes recorded by Metrics.
const (
	modeInline   = "inline"
	modeQueue    = "queue"
	modeBuffered = "buffered"
	modeDropped  = "dropped"
)

// Reply outcomes recorded by Metrics.
const (
	outcomeDelivered = "delivered"
	outcomeOrphaned  = "orphaned"
	outcomeAbandoned = "abandoned"
)

// Metrics holds the Prometheus collectors of one messenger. A nil *Metrics
// records nothing.
type Metrics struct {
	sent       *prometheus.CounterVec
	dispatched *prometheus.CounterVec
	replies    *prometheus.CounterVec
	pending    prometheus.Gauge

	reg prometheus.Registerer
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "platform_channels",
				Subsystem: "messenger",
				Name:      "sent_total",
				Help:      "Outbound messages by kind",
			},
			[]string{"kind"}, // message, request
		),
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "platform_channels",
				Subsystem: "messenger",
				Name:      "dispatched_total",
				Help:      "Inbound messages by dispatch mode",
			},
			[]string{"mode"}, // inline, queue, buffered, dropped
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "platform_channels",
				Subsystem: "messenger",
				Name:      "replies_total",
				Help:      "Replies to outbound requests by outcome",
			},
			[]string{"outcome"}, // delivered, orphaned, abandoned
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "platform_channels",
			Subsystem: "messenger",
			Name:      "pending_replies",
			Help:      "Outbound requests awaiting a reply",
		}),
	}
	collectors := m.collectors()
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}
	m.reg = reg
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.sent, m.dispatched, m.replies, m.pending}
}

// Unregister removes the collectors from the registerer they were
// registered on.
func (m *Metrics) Unregister() {
	if m == nil {
		return
	}
	if m.reg == nil {
		return
	}
	for _, c := range m.collectors() {
		m.reg.Unregister(c)
	}
	m.reg = nil
}

func (m *Metrics) messageSent(expectReply bool) {
	if m == nil {
		return
	}
	if expectReply {
		m.sent.WithLabelValues("request").Inc()
		m.pending.Inc()
	} else {
		m.sent.WithLabelValues("message").Inc()
	}
}

func (m *Metrics) dispatch(mode string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(mode).Inc()
}

func (m *Metrics) reply(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.replies.WithLabelValues(outcome).Add(float64(n))
	if outcome != outcomeOrphaned {
		m.pending.Sub(float64(n))
	}
}
