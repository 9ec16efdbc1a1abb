package api

import (
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strings"

	"ioclens/metrics"
)

// errorRecoveryMiddleware turns a handler panic into a 500 response.
// The stack trace is logged and never sent to the client.
func (a *API) errorRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stackBuf := make([]byte, 4096)
				stackLen := runtime.Stack(stackBuf, false)
				path := sanitizePath(r.URL.Path)

				a.logger.Errorw("PANIC RECOVERED",
					"error", sanitizeLogMessage(fmt.Sprintf("%v", err)),
					"request_id", GetRequestIDOrDefault(r.Context()),
					"method", r.Method,
					"path", path,
					"client_ip", getRealIP(r, a.config.API.TrustProxy, a.config.API.TrustedProxyNetworks),
					"stack_trace", string(stackBuf[:stackLen]),
				)
				metrics.APIPanics.WithLabelValues(r.Method, path).Inc()

				writeError(w, http.StatusInternalServerError, "Internal server error", nil, nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// sanitizePath replaces numeric path segments so metric labels stay bounded
func sanitizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		numeric := true
		for _, c := range segment {
			if c < '0' || c > '9' {
				numeric = false
				break
			}
		}
		if numeric {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// getRealIP extracts the client IP. Forwarding headers are honoured only when
// proxies are trusted and the direct peer is in a trusted network.
func getRealIP(r *http.Request, trustProxy bool, trustedNetworks []string) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	if !trustProxy || !isTrustedProxy(directIP, trustedNetworks) {
		return directIP
	}

	// X-Forwarded-For can contain multiple IPs, the first one is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if ip := r.Header.Get(header); ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
	}

	return directIP
}

// isTrustedProxy checks ip against CIDR ranges or exact addresses
func isTrustedProxy(ip string, trustedNetworks []string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, network := range trustedNetworks {
		if strings.Contains(network, "/") {
			_, ipNet, err := net.ParseCIDR(network)
			if err == nil && ipNet.Contains(parsedIP) {
				return true
			}
		} else if network == ip {
			return true
		}
	}
	return false
}
