package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/jpelletier/weatherfuse/internal/api/http"
	"github.com/jpelletier/weatherfuse/internal/cache"
	"github.com/jpelletier/weatherfuse/internal/config"
	"github.com/jpelletier/weatherfuse/internal/weather"
	"github.com/jpelletier/weatherfuse/internal/weather/sources"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	baseLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer baseLogger.Sync()
	zlog := baseLogger.Sugar()

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	regional := sources.NewECClient(httpClient, cfg.ECBaseURL, cfg.StaleThreshold, zlog)
	global := sources.NewOpenMeteoClient(httpClient, cfg.OpenMeteoBaseURL, zlog)
	engine := weather.NewEngine(cfg.RegionalWeight, zlog)
	service := weather.NewService(regional, global, engine, zlog)

	// Keyed refresh cache; each coordinate self-refreshes in the background.
	store := cache.New(service.Fetch, cfg.RefreshInterval, cfg.HTTPTimeout, zlog)
	defer store.Shutdown()

	app := fiber.New(fiber.Config{
		AppName:               "weatherfuse",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatherfuse",
		})
	})

	httpapi.RegisterRoutes(app, store)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Errorw("error during shutdown", "error", err)
	}
}
