package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS 包裝整個 HTTP handler，預設允許任何來源
func CORS(origins, methods []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         300,
	})
}

// OriginChecker 產生 websocket.Upgrader 的 CheckOrigin
// 支援 "*" 與單一萬用字元（例如 https://*.example.com）；沒有 Origin 標頭的非瀏覽器客戶端一律放行
func OriginChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := strings.ToLower(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		for _, allowed := range origins {
			if originMatches(strings.ToLower(allowed), origin) {
				return true
			}
		}
		return false
	}
}

func originMatches(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}
	prefix, suffix, wildcard := strings.Cut(pattern, "*")
	if !wildcard {
		return pattern == origin
	}
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}
