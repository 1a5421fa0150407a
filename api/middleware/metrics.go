package middleware

import (
	"net/http"
	"time"
)

type requestObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
}

// Metrics records request latency labelled by the matched route pattern.
func Metrics(observer requestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := wrapStatus(w)
			start := time.Now()
			next.ServeHTTP(rec, r)
			observer.Observe(r.Method, routeLabel(r), rec.code(), time.Since(start))
		})
	}
}
