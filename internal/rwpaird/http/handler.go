// Package http exposes the pairing and device registry APIs over HTTP
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
	"github.com/restwell/restwell-pairing/internal/rwpaird/pairing"
	"github.com/restwell/restwell-pairing/internal/rwpaird/ratelimit"
)

// Maximum request body size for pairing requests. These payloads are tiny;
// anything larger is abuse.
const maxRequestBodySize = 1 << 20 // 1MB

// Handler encapsulates the HTTP API for pairing and device management
type Handler struct {
	pairing   pairing.Service
	devices   device.Service
	ratelimit ratelimit.Service
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler for pairing endpoints
func NewHandler(
	pairingSvc pairing.Service,
	deviceSvc device.Service,
	rateLimitSvc ratelimit.Service,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		pairing:   pairingSvc,
		devices:   deviceSvc,
		ratelimit: rateLimitSvc,
		logger:    logger,
	}
}

// Router returns the HTTP router for all pairing endpoints
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Basic middleware for all routes
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestIDHeaderMiddleware)
	r.Use(recoverMiddleware(h.logger))
	r.Use(logMiddleware(h.logger))

	// Public health check endpoints (no rate limiting)
	r.Group(func(r chi.Router) {
		r.Get("/healthz", h.handleHealth())
		r.Get("/readyz", h.handleReady())
	})

	r.Route("/api/v1alpha1", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Route("/pairing", func(r chi.Router) {
			r.With(h.limit(ratelimit.TypeTokenIssue, nil)).
				Post("/tokens", h.IssuePairingToken)
			r.With(h.limit(ratelimit.TypeStatusPoll, tokenFromPath)).
				Get("/tokens/{token}", h.GetPairingStatus)
			r.With(h.limit(ratelimit.TypeTokenRedeem, nil)).
				Post("/redeem", h.RedeemPairingToken)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Use(h.limit(ratelimit.TypeAPIRequest, nil))

			r.Get("/{userID}", h.ListDevices)
			r.Delete("/{userID}/{deviceID}", h.UnpairDevice)
			r.Put("/{userID}/{deviceID}/last-active", h.TouchDevice)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not_found"}`))
		})
	})

	return r
}

// limit builds the rate limit middleware for one limit type
func (h *Handler) limit(limitType string, keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return ratelimit.Middleware(h.ratelimit, h.logger, ratelimit.Options{
		LimitType: limitType,
		KeyFunc:   keyFunc,
	})
}

// tokenFromPath keys status poll limits by the token being polled
func tokenFromPath(r *http.Request) string {
	return chi.URLParam(r, "token")
}

// handleHealth returns basic health check status
func (h *Handler) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// handleReady checks if the server is ready to accept requests
func (h *Handler) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}
