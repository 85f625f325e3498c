package middleware

import (
	"log"
	"net/http"

	"leverage/internal/config"
	"leverage/pkg/crypto"
)

// APIKeyAuth - middleware для авторизации по API ключу
//
// Ключ принимается в заголовке X-API-Key или в query параметре api_key.
// Если в конфигурации задан bcrypt-хэш (API_KEY_HASH), проверка идёт
// через него; иначе сравнивается plaintext ключ за константное время.
//
// При API_KEY_REQUIRED=false middleware пропускает все запросы.
func APIKeyAuth(security config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !security.APIKeyRequired {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}

			if key == "" {
				http.Error(w, "Missing API key", http.StatusUnauthorized)
				return
			}

			if !verifyKey(security, key) {
				log.Printf("Rejected request with invalid API key: %s %s from %s",
					r.Method, r.URL.Path, r.RemoteAddr)
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func verifyKey(security config.SecurityConfig, key string) bool {
	if security.APIKeyHash != "" {
		return crypto.VerifyAPIKey(key, security.APIKeyHash) == nil
	}
	return crypto.ConstantTimeEquals(key, security.APIKey)
}
