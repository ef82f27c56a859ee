// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route", "method"},
	)

	WorkflowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Total number of submission workflow transitions by action",
		},
		[]string{"action", "result"},
	)

	OutboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_messages_total",
			Help: "Total number of outbound applicant messages by channel and status",
		},
		[]string{"channel", "status"},
	)

	OutboundQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbound_queue_depth",
			Help: "Number of messages waiting in the outbound queue",
		},
	)

	UploadsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_accepted_total",
			Help: "Total number of files accepted through public links",
		},
		[]string{"link_type"},
	)
)
