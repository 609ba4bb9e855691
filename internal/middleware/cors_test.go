package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS([]string{"https://paradox.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/tools/submit", nil)
	req.Header.Set("Origin", "https://paradox.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Error("preflight should not reach the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://paradox.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected credentials for explicit origin")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-Paradox-Session-ID") {
		t.Error("expected session header to be allowed")
	}
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("wildcard origin must not allow credentials")
	}
}
