// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instruments for the API and the worker.

Each binary builds its own [Registry] so tests never share global state with
the default Prometheus registerer.

Instruments:

  - http_requests_total / http_request_duration_seconds: per route and status.
  - auth_events_total: outcome of every session lifecycle operation.
  - notify_jobs_total: enqueue, delivery, retry and drop counts per job kind.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "accounts"

// Registry groups the collectors owned by one process.
type Registry struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	authEvents   *prometheus.CounterVec
	notifyJobs   *prometheus.CounterVec
}

// New creates a [Registry] with Go runtime and process collectors attached.
func New() *Registry {
	registry := prometheus.NewRegistry()

	metrics := &Registry{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Session lifecycle operations by operation and outcome code.",
		}, []string{"operation", "outcome"}),
		notifyJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_jobs_total",
			Help:      "Notification jobs by kind and stage.",
		}, []string{"kind", "stage"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.httpRequests,
		metrics.httpDuration,
		metrics.authEvents,
		metrics.notifyJobs,
	)

	return metrics
}

// Handler serves the registry in the Prometheus exposition format.
func (metrics *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{Registry: metrics.registry})
}

// Gatherer exposes the underlying registry for tests.
func (metrics *Registry) Gatherer() prometheus.Gatherer {
	return metrics.registry
}

// ObserveHTTP records one finished request. Route should be the router
// pattern, not the raw path, to keep label cardinality bounded.
func (metrics *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	metrics.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	metrics.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// AuthEvent records the outcome of a lifecycle operation. Outcome is "ok" or
// an error code such as "UNAUTHORIZED".
func (metrics *Registry) AuthEvent(operation, outcome string) {
	if metrics == nil {
		return
	}
	metrics.authEvents.WithLabelValues(operation, outcome).Inc()
}

// NotifyJob records a notification job transition such as "enqueued",
// "dropped", "delivered", "retried" or "failed".
func (metrics *Registry) NotifyJob(kind, stage string) {
	if metrics == nil {
		return
	}
	metrics.notifyJobs.WithLabelValues(kind, stage).Inc()
}
