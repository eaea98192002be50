package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/ProtectLife/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestLogging(t *testing.T) {
	logger.Init("error", "text")

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("User-Agent", "test-agent")
	// simulate chi's RequestID middleware
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id"))

	w := httptest.NewRecorder()
	Logging(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got %s", w.Body.String())
	}
	if seen != "test-request-id" {
		t.Errorf("Expected request id in context, got %q", seen)
	}
}

func TestMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/reports/{id}", okHandler().ServeHTTP)

	req := httptest.NewRequest("GET", "/v1/reports/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got %s", w.Body.String())
	}
}

func TestRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/v1/reports/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = routePattern(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/reports/abc", nil))
	if got != "/v1/reports/{id}" {
		t.Errorf("Expected route pattern, got %q", got)
	}

	if p := routePattern(httptest.NewRequest("GET", "/nowhere", nil)); p != "unmatched" {
		t.Errorf("Expected unmatched, got %q", p)
	}
}

func TestSecurity(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	Security(okHandler()).ServeHTTP(w, req)

	expectedHeaders := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "1; mode=block",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Content-Security-Policy":   "default-src 'self'",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
	}

	for header, expectedValue := range expectedHeaders {
		if actual := w.Header().Get(header); actual != expectedValue {
			t.Errorf("Expected header %s: %s, got %s", header, expectedValue, actual)
		}
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	// 2 requests per minute
	wrappedHandler := RateLimit(2)(okHandler())

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		wrappedHandler.ServeHTTP(w, req)
		return w
	}

	if w := send("192.168.1.1:12345"); w.Code != http.StatusOK {
		t.Errorf("Expected first request to succeed, got status %d", w.Code)
	}
	if w := send("192.168.1.1:12346"); w.Code != http.StatusOK {
		t.Errorf("Expected second request to succeed, got status %d", w.Code)
	}

	w3 := send("192.168.1.1:12347")
	if w3.Code != http.StatusTooManyRequests {
		t.Errorf("Expected third request to be rate limited, got status %d", w3.Code)
	}
	if retryAfter := w3.Header().Get("Retry-After"); retryAfter != "60" {
		t.Errorf("Expected Retry-After header '60', got %s", retryAfter)
	}
	if !strings.Contains(w3.Body.String(), `"error":"rate_limited"`) {
		t.Errorf("Expected JSON error body, got %s", w3.Body.String())
	}

	// another client has its own window
	if w := send("10.0.0.1:1"); w.Code != http.StatusOK {
		t.Errorf("Expected other client to succeed, got status %d", w.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(0)(okHandler())
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected pass-through, got %d", w.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	allowedOrigins := []string{"https://example.com", "https://app.example.com"}
	wrappedHandler := CORS(allowedOrigins)(okHandler())

	tests := []struct {
		name           string
		origin         string
		method         string
		expectedStatus int
		expectOrigin   bool
		expectBody     bool
	}{
		{"Allowed origin", "https://example.com", "GET", http.StatusOK, true, true},
		{"Disallowed origin", "https://malicious.com", "GET", http.StatusOK, false, true},
		{"OPTIONS request", "https://example.com", "OPTIONS", http.StatusOK, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			wrappedHandler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			methods := w.Header().Get("Access-Control-Allow-Methods")
			if !strings.Contains(methods, "PATCH") {
				t.Errorf("Expected PATCH in allowed methods, got %s", methods)
			}
			allowHeaders := w.Header().Get("Access-Control-Allow-Headers")
			for _, h := range []string{"Content-Type", UserIDHeader, DefaultModeratorHeader} {
				if !strings.Contains(allowHeaders, h) {
					t.Errorf("Expected Access-Control-Allow-Headers to contain %s", h)
				}
			}
			if maxAge := w.Header().Get("Access-Control-Max-Age"); maxAge != "86400" {
				t.Errorf("Expected Access-Control-Max-Age '86400', got %s", maxAge)
			}

			allowOrigin := w.Header().Get("Access-Control-Allow-Origin")
			if tt.expectOrigin && allowOrigin != tt.origin {
				t.Errorf("Expected Access-Control-Allow-Origin %s, got %s", tt.origin, allowOrigin)
			}
			if !tt.expectOrigin && allowOrigin != "" {
				t.Errorf("Did not expect Access-Control-Allow-Origin, got %s", allowOrigin)
			}
			if got := w.Body.String() == "OK"; got != tt.expectBody {
				t.Errorf("Expected handler reached=%v, body %q", tt.expectBody, w.Body.String())
			}
		})
	}

	t.Run("Wildcard origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://any.com")
		w := httptest.NewRecorder()

		CORS([]string{"*"})(okHandler()).ServeHTTP(w, req)

		if allowOrigin := w.Header().Get("Access-Control-Allow-Origin"); allowOrigin != "https://any.com" {
			t.Errorf("Expected wildcard to allow any origin, got %s", allowOrigin)
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusUnauthorized, "unauthorized", "nope")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"message":"nope"`)) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}
