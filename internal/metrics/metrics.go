// Package metrics exposes editor activity as Prometheus metrics. The
// collector is fed from the editor event bus and from HTTP middleware.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nodeflow/internal/codec"
	"nodeflow/internal/service"
)

// Collector holds all Prometheus metrics for the editor
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Editor metrics
	Events      *prometheus.CounterVec
	Nodes       prometheus.Gauge
	Connections prometheus.Gauge
	Drags       *prometheus.CounterVec
	SceneLoads  prometheus.Counter
	SceneSaves  prometheus.Counter
}

// NewCollector creates a collector on its own registry
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Editor events by type",
			},
			[]string{"type"},
		),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Nodes in the scene",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Connections in the scene",
		}),
		Drags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drags_total",
				Help:      "Finished drag sessions by final state",
			},
			[]string{"state"},
		),
		SceneLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_loads_total",
			Help:      "Scenes loaded from files or the store",
		}),
		SceneSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_saves_total",
			Help:      "Scenes saved to files or the store",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Events,
		c.Nodes,
		c.Connections,
		c.Drags,
		c.SceneLoads,
		c.SceneSaves,
		collectors.NewGoCollector(),
	)
	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Observe records one editor event
func (c *Collector) Observe(e service.Event) {
	c.Events.WithLabelValues(string(e.Type)).Inc()

	switch e.Type {
	case service.EventNodeAdded:
		c.Nodes.Inc()
	case service.EventNodeRemoved:
		c.Nodes.Dec()
	case service.EventConnectionAdded:
		c.Connections.Inc()
	case service.EventConnectionRemoved:
		c.Connections.Dec()
	case service.EventSceneLoaded:
		c.SceneLoads.Inc()
		// A load replaces the whole scene, so resync from its report
		if report, ok := e.Payload.(*codec.LoadReport); ok && report != nil {
			c.Nodes.Set(float64(len(report.IDs)))
			c.Connections.Set(float64(report.Connections))
		}
	case service.EventSceneSaved:
		c.SceneSaves.Inc()
	case service.EventSessionUpdate:
		if view, ok := e.Payload.(service.SessionView); ok && view.State.Terminal() {
			c.Drags.WithLabelValues(view.State.String()).Inc()
		}
	}
}

// Consume observes events until the channel closes or ctx is cancelled
func (c *Collector) Consume(ctx context.Context, events <-chan service.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			c.Observe(e)
		case <-ctx.Done():
			return
		}
	}
}

// Middleware records request counts and durations by chi route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
