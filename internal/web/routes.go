package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facegate/internal/web/handlers"
	"github.com/kozaktomas/facegate/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	m := s.services.Metrics

	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.services.Identities, m)
	enrollHandler := handlers.NewEnrollHandler(s.config, s.services.Enroller, m)
	recognizeHandler := handlers.NewRecognizeHandler(s.services.Matcher, m)
	identitiesHandler := handlers.NewIdentitiesHandler(s.services.Identities, m)
	otpHandler := handlers.NewOTPHandler(s.services.OTP, m)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", healthHandler.Check)
	if m != nil {
		s.router.Handle("/metrics", m.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public endpoints, rate limited per client
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)

			r.Post("/enroll", enrollHandler.Enroll)
			r.Post("/recognize", recognizeHandler.Recognize)
			r.Post("/otp/verify", otpHandler.Verify)
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/identities", identitiesHandler.List)
			r.Get("/identities/{key}", identitiesHandler.Get)
			r.Delete("/identities/{key}", identitiesHandler.Delete)
			r.Post("/otp/issue", otpHandler.Issue)
		})
	})
}
