package middlewares

import (
	"net/http"
	"strings"
)

type Middleware func(http.Handler) http.Handler

// MiddlewaresExcludePaths wraps a middleware so that requests matching any of
// the given path prefixes skip it entirely.
func MiddlewaresExcludePaths(middleware Middleware, paths ...string) Middleware {
	return func(next http.Handler) http.Handler {
		wrapped := middleware(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range paths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}
