// Package metrics defines and registers the Prometheus metrics of the web client.
// All collectors register with the default registry on package init through promauto.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "testinsure"

// HTTPRequestDuration measures page and action latency.
// Labels:
//   - method: HTTP method
//   - route: the route pattern, not the raw path
//   - status: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the web client.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// SlowRequestsTotal counts requests above the slow-request threshold.
var SlowRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_slow_requests_total",
		Help:      "Total number of requests slower than the configured threshold.",
	},
	[]string{"route"},
)

// GateDecisionsTotal counts authorization gate outcomes.
// Labels:
//   - route: the guarded route pattern
//   - decision: loading, unauthenticated, role_mismatched or authorized
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of authorization gate decisions, by route and outcome.",
	},
	[]string{"route", "decision"},
)

// APIRequestsTotal counts calls to the remote hospital API.
// Labels:
//   - operation: gateway operation name (e.g. "ListTests")
//   - status: HTTP status code, or "error" for transport failures
var APIRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total number of remote API calls, by operation and status.",
	},
	[]string{"operation", "status"},
)

// APIRequestDuration measures remote API latency.
var APIRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Duration of remote API calls, by statement kind.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// StateQueryDuration measures client-state database calls.
var StateQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "state_query_duration_seconds",
		Help:      "Duration of client-state database calls, by statement kind.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"kind"},
)

// SessionEventsTotal counts session lifecycle events (restore, login, logout, expired).
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of session lifecycle events, by event.",
	},
	[]string{"event"},
)

// QueryObserver records client-state query timings into StateQueryDuration.
type QueryObserver struct{}

// ObserveQuery implements storage.QueryObserver.
func (QueryObserver) ObserveQuery(kind string, d time.Duration) {
	StateQueryDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveAPI records one remote API call.
// PRE: status is an HTTP status code, or 0 for a transport failure
func ObserveAPI(operation string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APIRequestsTotal.WithLabelValues(operation, label).Inc()
	APIRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}
