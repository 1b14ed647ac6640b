package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hangarcore/pkg/logger"
)

// SecConfig carries the daemon's request security settings.
type SecConfig struct {
	// BackendKeys is the set of accepted API keys.
	BackendKeys map[string]struct{}
	// AllowUnauth skips key checks entirely. Meant for local
	// single-user setups where the daemon binds to loopback.
	AllowUnauth bool
	RPS         float64
	Burst       int
}

// Middleware returns a handler wrapper enforcing API keys and
// per-key rate limits. Health and metrics endpoints stay open.
func Middleware(cfg SecConfig) func(http.Handler) http.Handler {
	pool := newLimiterPool(cfg.RPS, cfg.Burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isOpenPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			key := extractKey(r)
			if !cfg.AllowUnauth {
				if key == "" {
					http.Error(w, "missing API key", http.StatusUnauthorized)
					return
				}
				if _, ok := cfg.BackendKeys[key]; !ok {
					logger.Warn("auth_rejected", zap.String("path", r.URL.Path))
					http.Error(w, "invalid API key", http.StatusForbidden)
					return
				}
			}
			if key == "" {
				key = "anonymous"
			}
			if !pool.Allow(key) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isOpenPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}

func extractKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
