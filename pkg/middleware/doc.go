// Package middleware provides net/http middleware for the postboard server.
//
// This package includes:
//   - OpenTelemetry tracing, one server span per request
//   - Prometheus request metrics
//   - slog request logging
//
// # OpenTelemetry Middleware
//
// The tracer is resolved from the global OpenTelemetry provider unless one is
// given with WithTracer:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("postboard")))
//
// # Prometheus Metrics
//
// Metrics are labelled by the chi route pattern rather than the raw path, so
// /posts/1 and /posts/2 share one series:
//   - <namespace>_http_requests_total: requests by method, route and status
//   - <namespace>_http_request_duration_seconds: request duration histogram
//
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
