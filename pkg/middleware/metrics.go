package middleware

import (
	"net/http"
	"strconv"
	"time"

	"cleaning-booking/pkg/metrics"

	"github.com/go-chi/chi/v5"
)

// Metrics records request count and latency labelled by the chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.ObserveHTTP(r.Method, route, strconv.Itoa(rw.statusCode), time.Since(start).Seconds())
	})
}
