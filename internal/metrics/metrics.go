// Package metrics wires the Prometheus collectors exposed at /metrics,
// following this project's reference server's Registry shape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors used by the push server.
type Registry struct {
	Connections connectionMetrics
	Broker      brokerMetrics
	Transport   transportMetrics
}

type connectionMetrics struct {
	ActiveConnections prometheus.Gauge
}

type brokerMetrics struct {
	ActiveSubscriptions *prometheus.GaugeVec
	MessagesPublished   prometheus.Counter
	MessagesDelivered   prometheus.Counter
	SinkSendFailures    prometheus.Counter
}

type transportMetrics struct {
	UpgradeErrors prometheus.Counter
	ParseErrors   prometheus.Counter
}

// NewRegistry creates and registers the push server's Prometheus
// collectors against the default registry.
func NewRegistry() *Registry {
	return &Registry{
		Connections: connectionMetrics{
			ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "push_active_connections",
				Help: "Number of currently open subscriber WebSocket connections.",
			}),
		},
		Broker: brokerMetrics{
			ActiveSubscriptions: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "push_active_subscriptions",
				Help: "Number of live (channel kind, sink) subscription entries held by the broker.",
			}, []string{"kind"}),
			MessagesPublished: promauto.NewCounter(prometheus.CounterOpts{
				Name: "push_messages_published_total",
				Help: "Total number of Publish calls handled by the broker.",
			}),
			MessagesDelivered: promauto.NewCounter(prometheus.CounterOpts{
				Name: "push_messages_delivered_total",
				Help: "Total number of successful per-sink deliveries.",
			}),
			SinkSendFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "push_sink_send_failures_total",
				Help: "Total number of sink sends that failed and caused the sink to be reaped.",
			}),
		},
		Transport: transportMetrics{
			UpgradeErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "push_upgrade_errors_total",
				Help: "Total number of failed WebSocket upgrade attempts.",
			}),
			ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "push_channel_parse_errors_total",
				Help: "Total number of channel-list parse failures across publish and subscribe requests.",
			}),
		},
	}
}

// Handler returns an HTTP handler exposing Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
