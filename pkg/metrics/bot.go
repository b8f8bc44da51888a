package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paybot"

// BotMetrics records purchase flow and inventory activity.
type BotMetrics struct {
	purchases      *prometheus.CounterVec
	codesDrawn     prometheus.Counter
	exhausted      prometheus.Counter
	codesRemaining prometheus.Gauge
	events         *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
}

// NewBotMetrics registers the bot metrics on the provided registerer.
func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	if reg == nil {
		return &BotMetrics{}
	}
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchases_total",
		Help:      "Confirmed payments by catalog item.",
	}, []string{"item"})
	codesDrawn := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "codes_drawn_total",
		Help:      "Codes handed out from the inventory pool.",
	})
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_exhausted_total",
		Help:      "Draws that found the inventory pool empty.",
	})
	codesRemaining := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "codes_remaining",
		Help:      "Codes left in the inventory pool after the last draw.",
	})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Inbound events by kind and outcome.",
	}, []string{"kind", "outcome"})
	eventDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_duration_seconds",
		Help:      "Time spent handling an inbound event.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
	reg.MustRegister(purchases, codesDrawn, exhausted, codesRemaining, events, eventDuration)
	return &BotMetrics{
		purchases:      purchases,
		codesDrawn:     codesDrawn,
		exhausted:      exhausted,
		codesRemaining: codesRemaining,
		events:         events,
		eventDuration:  eventDuration,
	}
}

// IncPurchase counts a confirmed payment for item.
func (m *BotMetrics) IncPurchase(item string) {
	if m == nil || m.purchases == nil {
		return
	}
	m.purchases.WithLabelValues(normalizeLabel(item)).Inc()
}

// IncCodeDrawn counts a successful inventory draw and records the remainder.
func (m *BotMetrics) IncCodeDrawn(remaining int) {
	if m == nil || m.codesDrawn == nil {
		return
	}
	m.codesDrawn.Inc()
	m.codesRemaining.Set(float64(remaining))
}

// IncExhausted counts a draw against an empty pool.
func (m *BotMetrics) IncExhausted() {
	if m == nil || m.exhausted == nil {
		return
	}
	m.exhausted.Inc()
	m.codesRemaining.Set(0)
}

// SetCodesRemaining publishes the current pool size.
func (m *BotMetrics) SetCodesRemaining(remaining int) {
	if m == nil || m.codesRemaining == nil {
		return
	}
	m.codesRemaining.Set(float64(remaining))
}

// ObserveEvent records the outcome and duration of one handled event.
func (m *BotMetrics) ObserveEvent(kind, outcome string, duration time.Duration) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
	m.eventDuration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
