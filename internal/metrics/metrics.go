package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	updates       *prometheus.CounterVec
	rejected      prometheus.Counter
	pollErrors    prometheus.Counter
	sent          *prometheus.CounterVec
	reminders     *prometheus.CounterVec
	conversations prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_updates_processed_total",
			Help: "Telegram updates taken from getUpdates or the webhook, by kind",
		}, []string{"kind"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_updates_rejected_total",
			Help: "Updates dropped because the sender is not allow-listed",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_poll_errors_total",
			Help: "Failed getUpdates calls",
		}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_messages_sent_total",
			Help: "Outbound deliveries by method and result",
		}, []string{"method", "result"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_reminders_fired_total",
			Help: "Reminders delivered, by entity kind",
		}, []string{"kind"}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_conversations_active",
			Help: "Senders with a live conversation session",
		}),
	}
	reg.MustRegister(m.updates, m.rejected, m.pollErrors, m.sent, m.reminders, m.conversations)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Update(kind string) {
	if m != nil {
		m.updates.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Rejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

func (m *Metrics) PollError() {
	if m != nil {
		m.pollErrors.Inc()
	}
}

func (m *Metrics) Sent(method string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.sent.WithLabelValues(method, result).Inc()
}

func (m *Metrics) Reminder(kind string) {
	if m != nil {
		m.reminders.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Conversations(n int) {
	if m != nil {
		m.conversations.Set(float64(n))
	}
}
