// Package metrics exposes the service's Prometheus collectors. One Collector
// implements every recorder interface the application layers accept.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scaregistry/backend/internal/domain/policy"
)

const namespace = "sca"

// Collector owns a private registry so tests and multiple instances do not
// collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	staleSnapshots     *prometheus.CounterVec
	refreshedSnapshots *prometheus.CounterVec
	expiredCases       *prometheus.CounterVec
	decisions          *prometheus.CounterVec
	outboxDeliveries   *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewCollector registers all collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_transitions_total",
			Help:      "Case transitions by entity, transition and outcome",
		}, []string{"entity", "transition", "outcome"}),
		transitionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "case_transition_duration_seconds",
			Help:      "Time to authorize, validate and persist a transition",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"entity", "transition"}),
		staleSnapshots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_stale_total",
			Help:      "Cached snapshots served because the source could not be read",
		}, []string{"entity"}),
		refreshedSnapshots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_refreshed_total",
			Help:      "Cached snapshots rewritten after their source changed",
		}, []string{"entity"}),
		expiredCases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_expired_total",
			Help:      "Approved cases moved to Expired by the sweep",
		}, []string{"entity"}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_decisions_total",
			Help:      "Gate decisions by entity, transition, result and deny reason",
		}, []string{"entity", "transition", "result", "reason"}),
		outboxDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_deliveries_total",
			Help:      "Outbox delivery attempts by event type and outcome",
		}, []string{"event_type", "outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// TransitionCompleted records a finished engine operation
func (c *Collector) TransitionCompleted(entity, transition, outcome string, elapsed time.Duration) {
	c.transitions.WithLabelValues(entity, transition, outcome).Inc()
	c.transitionDuration.WithLabelValues(entity, transition).Observe(elapsed.Seconds())
}

// StaleSnapshot records a view served with a cached snapshot
func (c *Collector) StaleSnapshot(entity string) {
	c.staleSnapshots.WithLabelValues(entity).Inc()
}

// SnapshotsRefreshed records rewritten snapshot copies
func (c *Collector) SnapshotsRefreshed(entity string, count int) {
	if count > 0 {
		c.refreshedSnapshots.WithLabelValues(entity).Add(float64(count))
	}
}

// CasesExpired records cases moved to Expired
func (c *Collector) CasesExpired(entity string, count int) {
	if count > 0 {
		c.expiredCases.WithLabelValues(entity).Add(float64(count))
	}
}

// RecordDecision records one gate decision
func (c *Collector) RecordDecision(entity, transition string, d policy.Decision) {
	result := "allow"
	if !d.Allowed {
		result = "deny"
	}
	c.decisions.WithLabelValues(entity, transition, result, string(d.Reason)).Inc()
}

// RecordOutboxDelivery records one outbox delivery attempt
func (c *Collector) RecordOutboxDelivery(eventType, outcome string) {
	c.outboxDeliveries.WithLabelValues(eventType, outcome).Inc()
}

// GinMiddleware records request counts and latency keyed by the matched
// route template, so ids in paths do not explode cardinality.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
