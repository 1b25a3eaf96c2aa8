package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorsMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		allowedOrigins    []string
		method            string
		requestOrigin     string
		expectAllowOrigin string
		expectStatus      int
		expectNextCalled  bool
	}{
		{
			name:              "allowed origin",
			allowedOrigins:    []string{"https://www.example.com", "https://example.com"},
			method:            http.MethodPost,
			requestOrigin:     "https://www.example.com",
			expectAllowOrigin: "https://www.example.com",
			expectStatus:      http.StatusOK,
			expectNextCalled:  true,
		},
		{
			name:              "disallowed origin",
			allowedOrigins:    []string{"https://www.example.com"},
			method:            http.MethodPost,
			requestOrigin:     "https://evil.com",
			expectAllowOrigin: "",
			expectStatus:      http.StatusOK,
			expectNextCalled:  true,
		},
		{
			name:              "no origins configured",
			allowedOrigins:    nil,
			method:            http.MethodPost,
			requestOrigin:     "https://www.example.com",
			expectAllowOrigin: "",
			expectStatus:      http.StatusOK,
			expectNextCalled:  true,
		},
		{
			name:              "preflight request",
			allowedOrigins:    []string{"https://www.example.com"},
			method:            http.MethodOptions,
			requestOrigin:     "https://www.example.com",
			expectAllowOrigin: "https://www.example.com",
			expectStatus:      http.StatusNoContent,
			expectNextCalled:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			corsHandler := NewCORSMiddleware(tt.allowedOrigins)(handler)

			req := httptest.NewRequest(tt.method, "/api/contact", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			w := httptest.NewRecorder()
			corsHandler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectStatus, w.Code)
			assert.Equal(t, tt.expectAllowOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.expectNextCalled, called)
			assert.NotEqual(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRecoverMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	NewRecoverMiddleware("test")(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}

func TestLoggerMiddleware_CapturesStatus(t *testing.T) {
	var captured *responseWriterDelegator
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*responseWriterDelegator)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("short and stout"))
	})

	w := httptest.NewRecorder()
	NewLoggerMiddleware("test")(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/callback?code=secret", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, http.StatusTeapot, captured.Status())
	assert.Equal(t, len("short and stout"), captured.BytesWritten())
}

func TestChainMiddleware(t *testing.T) {
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := ChainMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("inner"), mark("outer"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
