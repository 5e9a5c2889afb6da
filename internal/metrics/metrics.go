package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConversationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formdesk_conversations_total",
			Help: "Feed runs by vendor and outcome",
		},
		[]string{"vendor", "outcome", "kind"}, // created|failed|skipped , error kind or ""
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formdesk_helpdesk_request_duration_seconds",
			Help:    "Latency of helpdesk API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"vendor", "method"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		ConversationsTotal,
		RequestDuration,
	)
}
