// Package billingengine предоставляет маршруты для основного приложения.
package billingengine

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/admin/globalpause"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/admin/setauthorized"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/health"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/product/setpaused"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/subscription/activate"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/subscription/batchcancel"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/subscription/charge"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/subscription/pause"
	"github.com/magabrotheeeer/billing-engine/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	accessservice "github.com/magabrotheeeer/billing-engine/internal/services/access"
	authservice "github.com/magabrotheeeer/billing-engine/internal/services/auth"
	billingservice "github.com/magabrotheeeer/billing-engine/internal/services/billing"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, billingService *billingservice.Service,
	accessService *accessservice.Service, authService *authservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/subscriptions", create.New(logger, billingService).ServeHTTP)
			r.Post("/subscriptions/cancel", batchcancel.New(logger, billingService).ServeHTTP)
			r.Post("/subscriptions/{id}/charge", charge.New(logger, billingService).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", cancel.New(logger, billingService).ServeHTTP)
			r.Post("/subscriptions/{id}/activate", activate.New(logger, billingService).ServeHTTP)
			r.Post("/subscriptions/{id}/pause", pause.New(logger, billingService).ServeHTTP)
			r.Get("/subscriptions/{id}/status", status.New(logger, billingService).ServeHTTP)
			r.Post("/products/{id}/paused", setpaused.New(logger, accessService).ServeHTTP)
			r.Post("/admin/authorized", setauthorized.New(logger, accessService).ServeHTTP)
			r.Post("/admin/paused", globalpause.New(logger, accessService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
	r.Get("/health", health.New(logger).ServeHTTP)
}
