package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "club"

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"route", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP latency by route",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method"},
	)
	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "http_in_flight", Help: "Requests holding a concurrency slot"},
	)
	sessionRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "session_refresh_total", Help: "Silent access token refreshes by result"},
		[]string{"result"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpInFlight, sessionRefresh) }

// Metrics 按路由模板打标签，/users/:id 不会按 id 爆炸
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpReqTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func MetricsHandler() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
