package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadQueryMetrics exposes counters/histograms for the lead query layer.
type LeadQueryMetrics struct {
	queryLatency    *prometheus.HistogramVec
	dedupSuppressed prometheus.Counter
	fieldWarnings   *prometheus.CounterVec
	queryErrors     *prometheus.CounterVec
}

func NewLeadQueryMetrics(reg prometheus.Registerer) *LeadQueryMetrics {
	m := &LeadQueryMetrics{
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dali",
			Subsystem: "leadquery",
			Name:      "request_latency_seconds",
			Help:      "Latency of lead query requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		dedupSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dali",
			Subsystem: "leadquery",
			Name:      "dedup_suppressed_total",
			Help:      "Fetches suppressed by the request deduplicator",
		}),
		fieldWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dali",
			Subsystem: "leadquery",
			Name:      "field_warnings_total",
			Help:      "Raw lead fields that failed to parse and were defaulted",
		}, []string{"field"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dali",
			Subsystem: "leadquery",
			Name:      "request_errors_total",
			Help:      "Failed lead query requests",
		}, []string{"endpoint"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.queryLatency, m.dedupSuppressed, m.fieldWarnings, m.queryErrors)
	return m
}

func (m *LeadQueryMetrics) ObserveQuery(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.queryLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *LeadQueryMetrics) ObserveDedupSuppressed() {
	if m == nil {
		return
	}
	m.dedupSuppressed.Inc()
}

func (m *LeadQueryMetrics) ObserveFieldWarning(field string) {
	if m == nil {
		return
	}
	m.fieldWarnings.WithLabelValues(field).Inc()
}

func (m *LeadQueryMetrics) ObserveQueryError(endpoint string) {
	if m == nil {
		return
	}
	m.queryErrors.WithLabelValues(endpoint).Inc()
}

// OutreachMetrics exposes counters for WhatsApp outreach dispatch.
type OutreachMetrics struct {
	published *prometheus.CounterVec
	sent      *prometheus.CounterVec
	throttled prometheus.Counter
}

func NewOutreachMetrics(reg prometheus.Registerer) *OutreachMetrics {
	m := &OutreachMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dali",
			Subsystem: "outreach",
			Name:      "published_total",
			Help:      "Outreach jobs published to the queue",
		}, []string{"dry_run"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dali",
			Subsystem: "outreach",
			Name:      "sent_total",
			Help:      "Outreach messages dispatched by the worker",
		}, []string{"status"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dali",
			Subsystem: "outreach",
			Name:      "throttled_total",
			Help:      "Sends delayed by the rate throttle",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.published, m.sent, m.throttled)
	return m
}

func (m *OutreachMetrics) ObservePublished(dryRun bool) {
	if m == nil {
		return
	}
	label := "false"
	if dryRun {
		label = "true"
	}
	m.published.WithLabelValues(label).Inc()
}

func (m *OutreachMetrics) ObserveSent(status string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(status).Inc()
}

func (m *OutreachMetrics) ObserveThrottled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}
