// Package middleware provides HTTP observability middleware for custodesk
// applications.
//
// This package includes:
//   - Prometheus metrics middleware
//   - OpenTelemetry distributed tracing middleware
//
// # Prometheus Metrics
//
// The Prometheus middleware records, per request:
//   - custodesk_requests_total: requests by method, route pattern, and status
//   - custodesk_request_duration_seconds: duration histogram by method and route
//   - custodesk_requests_in_flight: gauge of requests currently being served
//
//	app := custodesk.New(custodesk.Config{
//	    Middleware: []func(http.Handler) http.Handler{
//	        middleware.Prometheus(),
//	    },
//	})
//
// Then expose metrics on a separate port:
//
//	http.Handle("/metrics", promhttp.Handler())
//	go http.ListenAndServe(":9090", nil)
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware creates a server span per request using the
// global tracer provider:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	)
//
// Both middlewares label spans and metrics with the matched chi route
// pattern (e.g. "/customers/{customerID}") so cardinality stays bounded.
package middleware
