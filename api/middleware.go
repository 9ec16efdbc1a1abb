package api

import (
	"net/http"
	"time"

	"ioclens/metrics"

	"golang.org/x/time/rate"
)

// rateLimitMiddleware provides rate limiting per IP. With Redis configured the
// limit is shared across instances; a Redis failure falls back to the local limiter.
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getRealIP(r, a.config.API.TrustProxy, a.config.API.TrustedProxyNetworks)

		if a.redisLimiter != nil {
			allowed, err := a.redisLimiter.Allow(r.Context(), ip)
			if err == nil {
				if !allowed {
					a.rejectRateLimited(w, "redis", ip)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			a.logger.Warnw("Redis rate limit check failed, falling back to local limiter",
				"error", err,
				"client_ip", ip)
		}

		if !a.localLimiter(ip).Allow() {
			a.rejectRateLimited(w, "local", ip)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// localLimiter returns the in-process limiter for ip, creating it on first use
func (a *API) localLimiter(ip string) *rate.Limiter {
	a.rateLimitersMu.Lock()
	defer a.rateLimitersMu.Unlock()

	entry, exists := a.rateLimiters[ip]
	if !exists {
		entry = &rateLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(a.config.API.RateLimit.RequestsPerSecond), a.config.API.RateLimit.Burst),
		}
		a.rateLimiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (a *API) rejectRateLimited(w http.ResponseWriter, backend, ip string) {
	metrics.RateLimitRejections.WithLabelValues(backend).Inc()
	w.Header().Set("Retry-After", "1")
	writeError(w, http.StatusTooManyRequests, "Too many requests", nil, nil)
	a.logger.Debugw("Rate limit exceeded", "client_ip", ip, "backend", backend)
}

// cleanupRateLimiters periodically removes inactive rate limiters to prevent memory leaks
func (a *API) cleanupRateLimiters() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.pruneRateLimiters(time.Hour)
		case <-a.stopCh:
			return
		}
	}
}

func (a *API) pruneRateLimiters(idle time.Duration) int {
	a.rateLimitersMu.Lock()
	defer a.rateLimitersMu.Unlock()

	removed := 0
	for ip, entry := range a.rateLimiters {
		if time.Since(entry.lastSeen) > idle {
			delete(a.rateLimiters, ip)
			removed++
		}
	}
	return removed
}

// corsMiddleware adds CORS headers
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range a.config.API.AllowedOrigins {
			if origin == allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if a.config.API.TLS {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
