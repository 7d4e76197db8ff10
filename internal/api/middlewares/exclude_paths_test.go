package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewaresExcludePaths(t *testing.T) {
	var middlewareRan bool
	blocker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			middlewareRan = true
			next.ServeHTTP(w, r)
		})
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := MiddlewaresExcludePaths(blocker, "/users/signup", "/users/login")(final)

	tests := []struct {
		path    string
		wantRun bool
	}{
		{"/users/signup", false},
		{"/users/login", false},
		{"/users/logout", true},
		{"/groups/create", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			middlewareRan = false
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if middlewareRan != tt.wantRun {
				t.Errorf("middleware ran = %v, expected %v", middlewareRan, tt.wantRun)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	SecurityHeaders(final).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, expected nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, expected DENY", got)
	}
}
