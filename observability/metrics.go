package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace è il prefisso di tutte le metriche
const Namespace = "bild"

// Collector contiene le metriche Prometheus dell'applicazione
type Collector struct {
	// Registry per questa istanza
	registry *prometheus.Registry

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Traversal
	TraversalSteps     prometheus.Counter
	Teleports          prometheus.Counter
	ExpressionFailures *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge

	// Persistenza
	StoryOperations *prometheus.CounterVec
}

// NewCollector crea un collector con un registry dedicato
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TraversalSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "traversal_steps_total",
			Help:      "Total number of choices taken in preview sessions",
		}),
		Teleports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "traversal_teleports_total",
			Help:      "Choices whose target was missing and fell back to the first scene",
		}),
		ExpressionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "expression_failures_total",
				Help:      "Conditions and effects that failed to evaluate",
			},
			[]string{"kind"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "preview_sessions_active",
			Help:      "Number of open preview sessions",
		}),
		StoryOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "story_operations_total",
				Help:      "Story repository operations",
			},
			[]string{"operation", "status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.TraversalSteps,
		c.Teleports,
		c.ExpressionFailures,
		c.ActiveSessions,
		c.StoryOperations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry restituisce il registry del collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler espone le metriche in formato Prometheus
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordStoryOperation registra l'esito di un'operazione sul repository
func (c *Collector) RecordStoryOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StoryOperations.WithLabelValues(operation, status).Inc()
}

// GinMiddleware misura le richieste HTTP per route
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
