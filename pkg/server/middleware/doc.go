// Package middleware provides the HTTP middleware chain of the control API.
//
// Requests pass through, outermost first:
//
//  1. Recovery: turns handler panics into a 500 {"error": ...} response
//  2. RequestID: reuses or generates X-Request-ID
//  3. Logging: logs method, route, status and latency
//  4. Metrics: records request counts and durations
//
// Authentication lives in pkg/security/auth and wraps only the registry
// routes. Use Chain to compose the list:
//
//	handler := middleware.Chain(mux,
//	    middleware.RecoveryMiddleware(logger),
//	    middleware.RequestIDMiddleware,
//	    middleware.LoggingMiddleware(logger),
//	    middleware.MetricsMiddleware(collector),
//	)
package middleware
