package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Config{Enabled: true, Token: "s3cret"})(ok)

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"probe", http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"orbit read", http.MethodGet, "/api/v1/orbit", "", http.StatusOK},
		{"orbit upload without token", http.MethodPut, "/api/v1/orbit", "", http.StatusUnauthorized},
		{"solve without token", http.MethodPost, "/api/v1/rdr", "", http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "/api/v1/rdr", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", http.MethodPost, "/api/v1/rdr", "Basic s3cret", http.StatusUnauthorized},
		{"empty bearer", http.MethodPost, "/api/v1/rdr", "Bearer ", http.StatusUnauthorized},
		{"valid token", http.MethodPost, "/api/v1/rdr", "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	h := Middleware(Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/rdr", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", w.Code)
	}
}
