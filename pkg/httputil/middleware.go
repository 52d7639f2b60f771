package httputil

import (
	"net/http"
	"runtime/debug"

	"github.com/platinummonkey/warden/pkg/observability"
)

// RecoveryMiddleware recovers from handler panics and returns a 500 error
func RecoveryMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithField("panic", err).
						WithField("stack", string(debug.Stack())).
						Errorf("Panic handling %s %s", r.Method, r.URL.Path)
					WriteInternalError(w, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Chain chains multiple middleware together, first listed outermost
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
