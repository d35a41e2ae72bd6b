package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedHandler(secret string, exempt ...string) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Auth(secret, exempt...)(ok)
}

func TestAuthAcceptsSecretFromAllChannels(t *testing.T) {
	const secret = "s3cret"

	tests := []struct {
		name    string
		prepare func(r *http.Request)
	}{
		{
			name: "bearer token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+secret)
			},
		},
		{
			name: "settlement key header",
			prepare: func(r *http.Request) {
				r.Header.Set("X-Settlement-Key", secret)
			},
		},
		{
			name: "query parameter",
			prepare: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("key", secret)
				r.URL.RawQuery = q.Encode()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/settlement/run", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			authedHandler(secret).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
		})
	}
}

func TestAuthRejectsMissingOrWrongSecret(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(r *http.Request)
	}{
		{name: "no credentials", prepare: func(r *http.Request) {}},
		{
			name: "wrong bearer token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer wrong")
			},
		},
		{
			name: "wrong query key",
			prepare: func(r *http.Request) {
				r.URL.RawQuery = "key=wrong"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/settlement/run", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			authedHandler("s3cret").ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthExemptPaths(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	authedHandler("s3cret", "/api/health").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("exempt path status = %d, want 200", rec.Code)
	}
}

func TestAuthDisabledWhenNoSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/settlement/run", nil)
	rec := httptest.NewRecorder()

	authedHandler("").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth disabled", rec.Code)
	}
}
