package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/msenthi7/medical-chatbot/internal/observability"
	"go.uber.org/zap"
)

// RateLimitConfig bounds how many chat requests one client may send
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Enabled reports whether limiting is configured
func (c RateLimitConfig) Enabled() bool {
	return c.Requests > 0 && c.Window > 0
}

// ChatRateLimit caps questions per client IP over a sliding window. Keying on
// the IP rather than the session keeps a client that drops its cookie from
// resetting its budget. onLimit writes the 429 in the route's own format.
func ChatRateLimit(cfg RateLimitConfig, logger *zap.Logger, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(cfg.Requests, cfg.Window,
		httprate.WithKeyFuncs(chatScopeKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			key, _ := chatScopeKey(r)
			observability.Logger(r.Context(), logger).Warn("Chat rate limit exceeded",
				zap.String("scope", key),
				zap.Int("limit", cfg.Requests),
				zap.Duration("window", cfg.Window))
			onLimit(w, r)
		}),
	)
}

// chatScopeKey scopes the limit to the caller's address; RealIP has already
// resolved proxies into RemoteAddr.
func chatScopeKey(r *http.Request) (string, error) {
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "chat:ip:" + ip, nil
}
