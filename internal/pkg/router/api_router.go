package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/sublyhq/subly/app/controllers"
	"github.com/sublyhq/subly/internal/pkg/database"
	"github.com/sublyhq/subly/internal/pkg/env"
	"github.com/sublyhq/subly/internal/pkg/middleware"
	"github.com/sublyhq/subly/internal/pkg/subscription"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Wire the lifecycle service against the shared DB handle
	controllers.InitializeSubscriptionController(
		subscription.NewServiceFromDB(database.GetDB()),
	)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		// Redis-backed so limits hold across stateless instances
		Storage: newLimiterStorage(),
	}))

	auth := api.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)

	subs := api.Group("/subscriptions")
	subs.Get("/plans", controllers.HandleListPlans)
	subs.Post("/plans", middleware.RequireAuth(), middleware.RequireAdmin(), controllers.HandleCreatePlan)
	subs.Delete("/plans/:id", middleware.RequireAuth(), middleware.RequireAdmin(), controllers.HandleDeactivatePlan)

	subs.Post("/subscribe", middleware.RequireAuth(), controllers.HandleSubscribe)
	subs.Get("/active", middleware.RequireAuth(), controllers.HandleGetActiveSubscription)
	subs.Get("/history", middleware.RequireAuth(), controllers.HandleGetSubscriptionHistory)
	subs.Post("/cancel", middleware.RequireAuth(), controllers.HandleCancelSubscription)
	subs.Post("/upgrade", middleware.RequireAuth(), controllers.HandleUpgradeSubscription)
}

func newLimiterStorage() *redisstorage.Storage {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}

	return redisstorage.New(redisstorage.Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 1, // cache uses DB 0
		Reset:    false,
	})
}
