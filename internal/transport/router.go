package transport

import (
	"net/http"

	"pasal-be/internal/logger"
	"pasal-be/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the request surface. All checkout and order routes require
// an authenticated owner.
func NewRouter(h *Handler, auth *middleware.Auth) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)

	// The limiter runs after auth so it can key buckets on the owner rather
	// than the client address.
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(auth.Protect)
		r.Use(middleware.RateLimit)
		r.Post("/", h.CreateSession)
		r.Get("/{id}", h.GetSession)
		r.Put("/{id}/pay", h.InitiatePayment)
		r.Put("/{id}/pay/verify", h.VerifyPayment)
		r.Post("/{id}/finalize", h.Finalize)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(auth.Protect)
		r.Use(middleware.RateLimit)
		r.Get("/{id}", h.GetOrder)
	})

	return r
}
