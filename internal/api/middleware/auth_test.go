package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"leverage/internal/config"
	"leverage/pkg/crypto"
)

func authedHandler(security config.SecurityConfig) (http.Handler, *bool) {
	reached := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	return APIKeyAuth(security)(inner), &reached
}

// ============================================================
// Тесты APIKeyAuth
// ============================================================

func TestAPIKeyAuth_Disabled(t *testing.T) {
	handler, reached := authedHandler(config.SecurityConfig{APIKeyRequired: false})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/update-metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !*reached {
		t.Error("disabled auth must pass requests through")
	}
}

func TestAPIKeyAuth_PlaintextKey(t *testing.T) {
	security := config.SecurityConfig{APIKeyRequired: true, APIKey: "secret-key"}

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{
			"valid header key",
			func(r *http.Request) { r.Header.Set("X-API-Key", "secret-key") },
			http.StatusOK,
		},
		{
			"valid query key",
			func(r *http.Request) {
				q := r.URL.Query()
				q.Set("api_key", "secret-key")
				r.URL.RawQuery = q.Encode()
			},
			http.StatusOK,
		},
		{
			"wrong key",
			func(r *http.Request) { r.Header.Set("X-API-Key", "wrong") },
			http.StatusUnauthorized,
		},
		{
			"missing key",
			func(r *http.Request) {},
			http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, reached := authedHandler(security)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/update-metrics", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && !*reached {
				t.Error("authorized request did not reach handler")
			}
			if tt.wantStatus != http.StatusOK && *reached {
				t.Error("unauthorized request reached handler")
			}
		})
	}
}

func TestAPIKeyAuth_BcryptHash(t *testing.T) {
	hash, err := crypto.HashAPIKey("hashed-key")
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}
	security := config.SecurityConfig{APIKeyRequired: true, APIKeyHash: hash}

	handler, reached := authedHandler(security)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/update-metrics", nil)
	req.Header.Set("X-API-Key", "hashed-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !*reached {
		t.Errorf("valid hashed key rejected: status %d", rec.Code)
	}

	// Неверный ключ против хеша
	handler2, reached2 := authedHandler(security)
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/update-metrics", nil)
	req2.Header.Set("X-API-Key", "wrong-key")
	rec2 := httptest.NewRecorder()
	handler2.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusUnauthorized || *reached2 {
		t.Errorf("invalid key against hash accepted: status %d", rec2.Code)
	}
}

func TestAPIKeyAuth_HashTakesPrecedence(t *testing.T) {
	// При заданном хеше plaintext-ключ не участвует в проверке
	hash, err := crypto.HashAPIKey("real-key")
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}
	security := config.SecurityConfig{
		APIKeyRequired: true,
		APIKeyHash:     hash,
		APIKey:         "plaintext-key",
	}

	handler, reached := authedHandler(security)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/update-metrics", nil)
	req.Header.Set("X-API-Key", "plaintext-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized || *reached {
		t.Error("plaintext key must not bypass configured hash")
	}
}
