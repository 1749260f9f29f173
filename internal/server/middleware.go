package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/mortgage-simulator/internal/auth"
	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientLimiter hands out one token bucket per client address. Idle buckets
// expire from the cache after the configured TTL.
type clientLimiter struct {
	mu      sync.Mutex
	clients *cache.Cache
	limit   rate.Limit
	burst   int
}

func newClientLimiter(cfg config.RateLimitConfig) *clientLimiter {
	ttl := cfg.ClientTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &clientLimiter{
		clients: cache.New(ttl, 2*ttl),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
}

func (c *clientLimiter) allow(client string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var limiter *rate.Limiter
	if cached, ok := c.clients.Get(client); ok {
		limiter = cached.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(c.limit, c.burst)
	}
	// Refresh the expiry on every request.
	c.clients.Set(client, limiter, cache.DefaultExpiration)
	return limiter.Allow()
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *handler) rateLimit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddress(r)
		if !h.limiter.allow(client) {
			h.logger.Warn("rate limit exceeded",
				zap.String("op", "server.rateLimit"),
				zap.String("client", client),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			h.writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: http.StatusText(http.StatusTooManyRequests),
				Code:  "rate_limited",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin guards a handler with an admin bearer token.
func (h *handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil || !h.auth.Enabled() {
			h.respondErrorWithOp(w, http.StatusServiceUnavailable, "admin_disabled", auth.ErrDisabled.Error(), "server.requireAdmin")
			return
		}

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			h.respondErrorWithOp(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", "server.requireAdmin")
			return
		}

		subject, err := h.auth.Verify(strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin", error="invalid_token"`)
			h.respondErrorWithOp(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token", "server.requireAdmin")
			return
		}

		h.logger.Debug("admin request",
			zap.String("op", "server.requireAdmin"),
			zap.String("subject", subject),
			zap.String("path", r.URL.Path),
		)
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if !strings.HasPrefix(r.URL.Path, "/api/") {
			return
		}
		h.logger.Info("request handled",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
