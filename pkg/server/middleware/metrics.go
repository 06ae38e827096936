package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder records completed control API requests.
type RequestRecorder interface {
	RecordAPIRequest(method, route string, status int, duration time.Duration)
}

// MetricsMiddleware records method, matched route pattern, status and
// duration of every request. Unmatched requests have an empty route.
func MetricsMiddleware(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			recorder.RecordAPIRequest(r.Method, r.Pattern, rw.statusCode, time.Since(start))
		})
	}
}
