package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Options configures the rate limiting middleware for one route group
type Options struct {
	// LimitType selects the registered limit to enforce
	LimitType string

	// KeyFunc optionally extracts an identifying token from the request
	// (e.g., the pairing token being polled)
	KeyFunc func(r *http.Request) string

	// SkipLimitCheck bypasses limiting for matching requests
	SkipLimitCheck func(r *http.Request) bool
}

// Middleware creates an HTTP middleware enforcing the configured limit.
// Responses carry standard rate limit headers per RFC 6585.
func Middleware(service Service, logger *slog.Logger, options Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			reqLogger := logger.With("requestId", reqID)

			if options.SkipLimitCheck != nil && options.SkipLimitCheck(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := LimitKey{
				Type:     options.LimitType,
				RemoteIP: realIP(r),
				Endpoint: r.URL.Path,
			}
			if options.KeyFunc != nil {
				key.Token = options.KeyFunc(r)
			}

			limit := service.GetLimit(options.LimitType)
			setRateLimitHeaders(w, limit)

			err := service.Allow(r.Context(), key)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			if errors.Is(err, ErrLimitExceeded) {
				reqLogger.Warn("rate limit exceeded",
					"type", options.LimitType,
					"remoteIP", key.RemoteIP,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limit.Period.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate_limited","error_description":"too many requests"}`)
				return
			}

			reqLogger.Error("rate limit check failed",
				"error", err,
				"type", options.LimitType,
				"path", r.URL.Path,
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		})
	}
}

// setRateLimitHeaders advertises the configured limit to clients
func setRateLimitHeaders(w http.ResponseWriter, limit Limit) {
	if limit.Rate == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit.Rate))
	w.Header().Set("X-RateLimit-Window", limit.Period.String())
}

// realIP extracts the client IP, honoring proxy headers when present
func realIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	return r.RemoteAddr
}
