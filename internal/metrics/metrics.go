// Package metrics exposes pipeline and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry        *prometheus.Registry
	validations     *prometheus.CounterVec
	issues          prometheus.Counter
	riskScore       prometheus.Histogram
	stageDuration   *prometheus.HistogramVec
	stageFallbacks  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rejectedUploads *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	f := promauto.With(registry)

	return &Collector{
		registry: registry,
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "termsheet_validations_total",
			Help: "Completed validations by status",
		}, []string{"status"}),
		issues: f.NewCounter(prometheus.CounterOpts{
			Name: "termsheet_issues_total",
			Help: "Rule violations reported across all validations",
		}),
		riskScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "termsheet_risk_score",
			Help:    "Distribution of risk scores",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termsheet_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		stageFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "termsheet_stage_fallbacks_total",
			Help: "Stages that substituted canned data",
		}, []string{"stage"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "termsheet_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termsheet_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rejectedUploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "termsheet_rejected_uploads_total",
			Help: "Uploads rejected before the pipeline ran",
		}, []string{"reason"}),
	}
}

// ObserveStage records a pipeline stage duration and whether it fell back.
func (c *Collector) ObserveStage(stage string, d time.Duration, fellBack bool) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if fellBack {
		c.stageFallbacks.WithLabelValues(stage).Inc()
	}
}

// ObserveValidation records a finished validation.
func (c *Collector) ObserveValidation(status string, riskScore float64, issues int) {
	c.validations.WithLabelValues(status).Inc()
	c.issues.Add(float64(issues))
	c.riskScore.Observe(riskScore)
}

func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RejectUpload(reason string) {
	c.rejectedUploads.WithLabelValues(reason).Inc()
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
