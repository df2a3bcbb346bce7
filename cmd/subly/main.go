package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/sublyhq/subly/app/repository"
	"github.com/sublyhq/subly/internal/pkg/cache"
	"github.com/sublyhq/subly/internal/pkg/database"
	"github.com/sublyhq/subly/internal/pkg/env"
	"github.com/sublyhq/subly/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	database.SeedDefaults()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName: "subly",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: findOpenAPIFile(),
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app)

	return app
}

func findOpenAPIFile() string {
	// Works both from the project root and from cmd/subly
	candidates := []string{
		"./public/docs/v1/openapi.yml",
		"../../public/docs/v1/openapi.yml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return candidates[0]
}
