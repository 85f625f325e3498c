package middleware

import (
	"net/http"
	"os"
	"strings"
)

// CORS - middleware для Cross-Origin Resource Sharing
//
// Разрешённые origins берутся из ALLOWED_ORIGINS (comma-separated).
// Пустое значение или "*" разрешает все origins (режим разработки).
func CORS(next http.Handler) http.Handler {
	allowed := parseAllowedOrigins(os.Getenv("ALLOWED_ORIGINS"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if allowed.allowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed.origins[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Preflight запрос
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type allowedOrigins struct {
	origins  map[string]struct{}
	allowAll bool
}

func parseAllowedOrigins(env string) allowedOrigins {
	result := allowedOrigins{origins: make(map[string]struct{})}

	if env == "" || env == "*" {
		result.allowAll = true
		return result
	}

	for _, origin := range strings.Split(env, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			result.origins[origin] = struct{}{}
		}
	}

	return result
}
