package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "http_requests_total",
        Help: "HTTP requests by method, route pattern and status.",
    }, []string{"method", "route", "status"})

    httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "http_request_duration_seconds",
        Help:    "HTTP request latency by method and route pattern.",
        Buckets: prometheus.DefBuckets,
    }, []string{"method", "route"})
)

// Metrics records request counts and latencies.  Routes are labelled with
// their pattern (c.Path()) so IDs do not explode label cardinality.
func Metrics() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            method := c.Request().Method
            status := strconv.Itoa(c.Response().Status)
            httpRequests.WithLabelValues(method, route, status).Inc()
            httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
            return nil
        }
    }
}
