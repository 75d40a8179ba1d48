package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gym-access-go/internal/config"
	"gym-access-go/internal/metrics"
	"gym-access-go/internal/transport/httpserver/handler"
	"gym-access-go/internal/transport/httpserver/middleware"
	"gym-access-go/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, m *metrics.Metrics, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.NewCORS(cfg.CORSAllowedOrigins))
	if m != nil {
		r.Use(m.Middleware)
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.With(middleware.NewRateLimit(cfg.Kiosk.RatePerSecond, cfg.Kiosk.Burst, log)).
			Post("/checkins", handlers.CheckIn)

		admin := middleware.NewAdminAuth(cfg.AdminToken, log)
		r.Group(func(r chi.Router) {
			r.Use(admin.Middleware)

			r.Get("/plans", handlers.ListPlans)
			r.Get("/dni/{dni}/status", handlers.DNIStatus)

			r.Get("/members", handlers.ListMembers)
			r.Post("/members", handlers.RegisterMember)
			r.Post("/members/reactivate", handlers.ReactivateMember)
			r.Get("/members/{id}", handlers.GetMember)
			r.Put("/members/{id}", handlers.EditMember)
			r.Delete("/members/{id}", handlers.DeleteMember)
			r.Post("/members/{id}/renewals", handlers.RenewMember)
			r.Get("/members/{id}/access-events", handlers.ListAccessEvents)

			r.Get("/reports/summary", handlers.ReportsSummary)
			r.Get("/reports/access-log", handlers.ReportsAccessLog)
			r.Get("/reports/roster", handlers.ReportsRoster)
		})
	})

	return r
}
