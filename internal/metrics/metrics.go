package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sghtao/companion-camp-backend/internal/ai"
)

const namespace = "companion_camp"

// Metrics holds the service collectors on a private registry so several
// instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	evaluationsTotal    *prometheus.CounterVec
	qualitativeDegraded *prometheus.CounterVec
	rewardFailuresTotal prometheus.Counter
	coinQuoteSources    *prometheus.CounterVec
	coinCacheLookups    *prometheus.CounterVec
	serviceInfo         *prometheus.GaugeVec
}

func New(version string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	m.evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluations by terminal stage",
		},
		[]string{"stage"}, // done, no_posts_available, hard_error
	)

	m.qualitativeDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qualitative_degraded_total",
			Help:      "Qualitative scores replaced by the fallback result",
		},
		[]string{"reason"},
	)

	m.rewardFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_dispatch_failures_total",
			Help:      "Reward dispatches substituted with a zero receipt",
		},
	)

	m.coinQuoteSources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coin_quote_source_total",
			Help:      "Coin listings served per price source",
		},
		[]string{"source"},
	)

	m.coinCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coin_cache_lookups_total",
			Help:      "Coin listing cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)

	m.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_info",
			Help:      "Service information",
		},
		[]string{"version"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.evaluationsTotal,
		m.qualitativeDegraded,
		m.rewardFailuresTotal,
		m.coinQuoteSources,
		m.coinCacheLookups,
		m.serviceInfo,
	)
	m.serviceInfo.WithLabelValues(version).Set(1)

	return m
}

// EvaluationCompleted implements evaluation.Recorder
func (m *Metrics) EvaluationCompleted(stage string) {
	m.evaluationsTotal.WithLabelValues(stage).Inc()
}

// RewardDispatchFailed implements evaluation.Recorder
func (m *Metrics) RewardDispatchFailed() {
	m.rewardFailuresTotal.Inc()
}

// QualitativeDegraded is registered as the scorer's degraded hook.
func (m *Metrics) QualitativeDegraded(reason ai.DegradeReason) {
	m.qualitativeDegraded.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) CoinQuotesServed(source string) {
	m.coinQuoteSources.WithLabelValues(source).Inc()
}

func (m *Metrics) CoinCacheLookup(result string) {
	m.coinCacheLookups.WithLabelValues(result).Inc()
}

// Middleware collects HTTP request metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
