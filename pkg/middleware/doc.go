// Package middleware provides the HTTP middleware of the preview server.
//
// This package includes:
//   - OpenTelemetry tracing of every request
//   - Structured request logging
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware opens a server span per request carrying
// the method, route, and response status:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("preview"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/metrics"
//	    }),
//	))
//
// The tracer comes from the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Handlers reach the span through the
// request context:
//
//	span := trace.SpanFromContext(r.Context())
//
// # Request Logging
//
//	r.Use(middleware.Logger(logger))
//
// Requests are logged at Debug, server errors at Warn.
package middleware
