package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/reelforge/monitor/internal/client"
	"github.com/reelforge/monitor/internal/config"
	"github.com/reelforge/monitor/internal/handler"
	"github.com/reelforge/monitor/internal/logs"
	"github.com/reelforge/monitor/internal/model"
	"github.com/reelforge/monitor/internal/session"
	ws "github.com/reelforge/monitor/internal/websocket"
	"github.com/reelforge/monitor/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client (durable log journal)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available, durable logs degraded: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	workflowClient := client.NewWorkflowClient(&cfg.Workflow)
	renderClient := client.NewRenderClient(&cfg.Render)
	liveLogClient := client.NewLiveLogClient(&cfg.Logs)
	durableStore := logs.NewDurableStore(redisClient, cfg.Logs.KeyPrefix)

	deps := session.Deps{
		Workflow: workflowClient,
		Durable:  durableStore,
		Validate: validate,
		Cfg:      cfg,
		OnView: func(jobID string, vm model.ViewModel) {
			hub.BroadcastSnapshot(jobID, vm)
		},
		OnAnnounce: func(jobID string, status model.RenderStatus, message string) {
			if status == model.RenderStatusFailed || status == model.RenderStatusError {
				hub.BroadcastError(jobID, "RENDER_FAILED", message)
			}
		},
	}
	if renderClient.IsConfigured() {
		deps.Render = renderClient
	} else {
		log.Println("Info: render status endpoint not configured, sub-monitor disabled")
	}
	if liveLogClient.IsConfigured() {
		deps.Live = liveLogClient
	}

	registry := session.NewRegistry(ctx, deps)
	monitorHandler := handler.NewMonitorHandler(registry)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"workflow": workflowClient.IsConfigured(),
				"render":   renderClient.IsConfigured(),
				"livelogs": liveLogClient.IsConfigured(),
				"redis":    redisClient.Ping(c.Context()).Err() == nil,
			},
		})
	})

	// API routes
	api := app.Group("/api")
	jobsGroup := api.Group("/jobs")
	jobsGroup.Post("/:jobId/watch", monitorHandler.Watch)
	jobsGroup.Delete("/:jobId/watch", monitorHandler.Unwatch)
	jobsGroup.Get("/:jobId/view", monitorHandler.View)
	jobsGroup.Get("/:jobId/connection", monitorHandler.Connection)
	jobsGroup.Post("/:jobId/retry", monitorHandler.Retry)
	jobsGroup.Post("/:jobId/cancel", monitorHandler.Cancel)
	jobsGroup.Post("/:jobId/visibility", monitorHandler.Visibility)

	// WebSocket route for observers
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down...")
		registry.Close()
		_ = app.Shutdown()
	}()

	log.Printf("Starting monitor gateway on port %s (%s)", cfg.Server.Port, cfg.Server.Env)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return response.Error(c, code, response.CodeServiceError, err.Error(), nil)
}
