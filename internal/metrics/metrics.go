package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {

	// Counters
	alertsStored         *prometheus.CounterVec // Has labels: severity, status
	ticketsCreated       *prometheus.CounterVec // Has labels: outcome (created/failed)
	duplicatesSuppressed prometheus.Counter
	slackNotifications   *prometheus.CounterVec // Has labels: status (success/failure)

	// Gauges
	circuitBreakerState prometheus.Gauge

	// Histograms
	ingestDuration prometheus.Histogram
}

func NewMetrics() *Metrics {

	m := &Metrics{
		alertsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertmon_alerts_stored_total",
				Help: "Total number of alerts persisted",
			},
			[]string{"severity", "status"},
		),
		ticketsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertmon_tickets_created_total",
				Help: "Total number of external ticket creation attempts",
			},
			[]string{"outcome"},
		),
		duplicatesSuppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alertmon_duplicate_tickets_suppressed_total",
				Help: "Ticket creations skipped because an open ticket already covered the signature",
			},
		),
		slackNotifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertmon_slack_notifications_sent_total",
				Help: "Total number of notifications sent to Slack",
			},
			[]string{"status"},
		),
		circuitBreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "alertmon_circuit_breaker_state",
				Help: "Circuit breaker state (0=CLOSED, 1=OPEN, 2=HALF_OPEN)",
			},
		),
		ingestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "alertmon_ingest_duration_seconds",
				Help: "Time taken to process one webhook alert in seconds",
			},
		),
	}

	prometheus.MustRegister(m.alertsStored)
	prometheus.MustRegister(m.ticketsCreated)
	prometheus.MustRegister(m.duplicatesSuppressed)
	prometheus.MustRegister(m.slackNotifications)
	prometheus.MustRegister(m.circuitBreakerState)
	prometheus.MustRegister(m.ingestDuration)

	return m
}

func (m *Metrics) IncAlertsStored(severity, status string) {
	m.alertsStored.WithLabelValues(severity, status).Inc()
}

func (m *Metrics) IncTicketsCreated(outcome string) {
	m.ticketsCreated.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDuplicatesSuppressed() {
	m.duplicatesSuppressed.Inc()
}

func (m *Metrics) IncSlackNotifications(status string) {
	m.slackNotifications.WithLabelValues(status).Inc()
}

func (m *Metrics) SetCircuitBreakerState(state float64) {
	m.circuitBreakerState.Set(state)
}

func (m *Metrics) ObserveIngestDuration(seconds float64) {
	m.ingestDuration.Observe(seconds)
}
