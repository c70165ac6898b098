package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devreview-service/internal/api/http/handlers"
	"github.com/spec-kit/devreview-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Review         *handlers.ReviewHandler
	Payments       *handlers.PaymentsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	aiGroup := app.Group("/ai", cfg.AuthMiddleware.Handle)
	aiGroup.Post("/review", cfg.Review.Review)

	payments := app.Group("/payments")
	payments.Get("/plans", cfg.Payments.Plans)
	payments.Post("/webhook", cfg.Payments.Webhook)
	payments.Post("/checkout", cfg.AuthMiddleware.Handle, cfg.Payments.Checkout)
	payments.Post("/portal", cfg.AuthMiddleware.Handle, cfg.Payments.Portal)
	payments.Get("/subscription", cfg.AuthMiddleware.Handle, cfg.Payments.Subscription)
}
