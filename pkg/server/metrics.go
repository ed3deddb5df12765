package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/tools"
)

const namespace = "brady"

// Metrics holds the service collectors. Each Server registers its own set,
// so several servers can live in one process (tests do this).
type Metrics struct {
	registry *prometheus.Registry

	// requestsTotal counts HTTP requests by route and status code.
	requestsTotal *prometheus.CounterVec
	// requestDuration is the latency of chat requests in seconds.
	requestDuration *prometheus.HistogramVec
	// toolCallsTotal counts tool invocations by tool and outcome.
	toolCallsTotal *prometheus.CounterVec
	// systemErrorsTotal counts turns whose answer was a remote failure.
	systemErrorsTotal prometheus.Counter
	// sessionsActive is the number of sessions held in the store.
	sessionsActive prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chat_duration_seconds",
				Help:      "Duration of chat turns in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"}, // status: ok, system_error
		),
		toolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool", "status"}, // status: success, error
		),
		systemErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "system_errors_total",
				Help:      "Total number of turns answered with a system error",
			},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of conversation sessions held in memory",
			},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.toolCallsTotal,
		m.systemErrorsTotal,
		m.sessionsActive,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrumentedTools counts every tool call passing through it.
type instrumentedTools struct {
	next    agent.ToolInvoker
	metrics *Metrics
}

func (t *instrumentedTools) Invoke(ctx context.Context, call tools.Call) tools.Result {
	res := t.next.Invoke(ctx, call)
	status := "success"
	if res.IsError {
		status = "error"
	}
	t.metrics.toolCallsTotal.WithLabelValues(call.Name, status).Inc()
	return res
}
