package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/devreview-service/internal/ai"
	httptransport "github.com/spec-kit/devreview-service/internal/api/http"
	"github.com/spec-kit/devreview-service/internal/api/http/handlers"
	"github.com/spec-kit/devreview-service/internal/auth"
	"github.com/spec-kit/devreview-service/internal/billing"
	"github.com/spec-kit/devreview-service/internal/config"
	"github.com/spec-kit/devreview-service/internal/events"
	"github.com/spec-kit/devreview-service/internal/observability"
	"github.com/spec-kit/devreview-service/internal/persistence"
	"github.com/spec-kit/devreview-service/internal/repository"
	"github.com/spec-kit/devreview-service/internal/service"
	"github.com/spec-kit/devreview-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	usageRepo := repository.NewUsageRepository(redis.Client)
	billingEventRepo := repository.NewBillingEventRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger))

	var reviewer ai.Reviewer
	if r, err := ai.NewOpenAIReviewer(cfg.AI); err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			logger.Warn("AI_API_KEY not set; code review disabled")
		} else {
			logger.Fatal("failed to init ai provider", zap.Error(err))
		}
	} else {
		reviewer = r
	}

	var gateway billing.Gateway
	if g, err := billing.NewStripeGateway(cfg.Stripe); err != nil {
		if errors.Is(err, billing.ErrNotConfigured) {
			logger.Warn("STRIPE_SECRET_KEY not set; billing disabled")
		} else {
			logger.Fatal("failed to init billing gateway", zap.Error(err))
		}
	} else {
		gateway = g
	}

	authService := service.NewAuthService(cfg.Auth, userRepo, dispatcher)
	entitlementService := service.NewEntitlementService(usageRepo, service.DefaultPlanLimits(cfg.Entitlements), logger)
	reviewService := service.NewReviewService(entitlementService, reviewer, dispatcher, logger, cfg.AI.Timeout())
	billingService := service.NewBillingService(cfg.Stripe, userRepo, billingEventRepo, gateway, dispatcher, logger)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.CORS, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Review:         handlers.NewReviewHandler(reviewService),
		Payments:       handlers.NewPaymentsHandler(billingService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
