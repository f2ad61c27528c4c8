// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "identity"

var (
	// UserOperations counts service operations by outcome.
	UserOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_operations_total",
			Help:      "User service operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// UserOperationDuration tracks service operation latency, store included.
	UserOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "user_operation_duration_seconds",
			Help:      "Latency of user service operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// AuthFailures counts rejected self-service and trusted calls by reason.
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected requests by reason",
		},
		[]string{"reason"},
	)

	// CacheLookups counts user cache reads (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_cache_lookups_total",
			Help:      "User record cache lookups by result",
		},
		[]string{"result"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveUserOperation records one completed service operation.
func ObserveUserOperation(operation, result string, d time.Duration) {
	UserOperations.WithLabelValues(operation, result).Inc()
	UserOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveAuthFailure records a rejected request.
func ObserveAuthFailure(reason string) {
	AuthFailures.WithLabelValues(reason).Inc()
}

// ObserveCacheLookup records a cache read outcome.
func ObserveCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns Echo middleware recording request counts and latency.
// The route label is the registered path pattern, never the raw URL, so
// user ids do not explode label cardinality; unmatched requests share one
// "unmatched" route.
func Middleware(skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if _, ok := skip[c.Request().URL.Path]; ok {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequests.WithLabelValues(method, route, strconv.Itoa(statusOf(c, err))).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// statusOf returns the status the error handler will write. Middleware sees
// the error before the handler runs, so the response is usually uncommitted.
func statusOf(c *echo.Context, err error) int {
	if resp, unwrapErr := echo.UnwrapResponse(c.Response()); unwrapErr == nil && resp.Committed {
		return resp.Status
	}
	if err == nil {
		return http.StatusOK
	}
	var sc echo.HTTPStatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
