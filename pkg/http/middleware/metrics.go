package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dashboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template and status class.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"route", "method", "class"},
	)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Requests currently being served.",
	})

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dashboard",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response body size.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
		},
		[]string{"route"},
	)

	registerHTTPMetrics sync.Once
)

// Metrics records request metrics labelled by the echo route template
// (e.g. "/dashboard/refresh/:section") to keep cardinality low. Server
// errors are logged at error level and slow requests at warn.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	registerHTTPMetrics.Do(func() {
		prometheus.MustRegister(httpRequestDuration, httpInFlight, httpResponseSize)
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := routeLabel(c)
			code := c.Response().Status
			took := time.Since(start)
			httpRequestDuration.WithLabelValues(route, c.Request().Method, statusClass(code)).Observe(took.Seconds())
			httpResponseSize.WithLabelValues(route).Observe(float64(c.Response().Size))

			if l == nil {
				return nil
			}
			switch {
			case code >= http.StatusInternalServerError:
				l.Error("http request failed", requestFields(c, route, code, took)...)
			case slowThreshold > 0 && took >= slowThreshold:
				l.Warn("http request slow", requestFields(c, route, code, took)...)
			}
			return nil
		}
	}
}

func requestFields(c echo.Context, route string, code int, took time.Duration) []applogger.Field {
	return []applogger.Field{
		applogger.String("route", route),
		applogger.String("method", c.Request().Method),
		applogger.String("status", strconv.Itoa(code)),
		applogger.String("request_id", RequestID(c)),
		applogger.Duration("duration", took),
	}
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
