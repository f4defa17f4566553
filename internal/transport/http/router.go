package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/exam-registration/internal/config"
	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/infrastructure/metrics"
	"github.com/exam-registration/internal/transport/http/handler"
	appmiddleware "github.com/exam-registration/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, applied to the code-issuing and code-checking endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	regH := handler.NewRegistrationHandler(deps.Registration, cfg.ExposeCodes)
	windowH := handler.NewExamWindowHandler(deps.ExamWindow)
	slotH := handler.NewSlotHandler(deps.Slots)
	adminH := handler.NewAdminHandler(deps.Registrations, deps.Images)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/exam-window", windowH.Get)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/registrations", regH.Begin)
			r.Post("/registrations/resend", regH.Resend)
			r.Post("/registrations/verify", regH.Verify)
			r.Post("/registrations/commit", regH.Commit)
		})

		if deps.Tokens == nil {
			return
		}
		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Tokens))
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

			r.Put("/exam-window", windowH.Update)
			r.Get("/slots/{date}", slotH.ListDay)
			r.Get("/registrations/{id}", adminH.GetRegistration)
			r.Get("/accounts/{id}/registrations", adminH.ListAccountRegistrations)
			r.Get("/accounts/{id}/photo", adminH.GetPhoto)
		})
	})

	return r
}
