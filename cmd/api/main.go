package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"notify-hub/internal/config"
	"notify-hub/internal/handler"
	"notify-hub/internal/middleware"
	"notify-hub/internal/repository"
	"notify-hub/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, redis, cfg)
	handlers := handler.NewHandlers(services, cfg)
	defer services.Scheduler.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	setupRoutes(app, handlers, cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		_ = app.Shutdown()
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRoutes(app *fiber.App, h *handler.Handlers, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/ws", h.WS.Upgrade, h.WS.Serve())

	v1 := app.Group("/api/v1")

	protected := v1.Group("", middleware.AuthRequired(cfg))

	notifications := protected.Group("/notifications")
	notifications.Post("/", h.Notification.Create)
	notifications.Post("/bulk", h.Notification.CreateBulk)
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Get("/stats", h.Notification.GetStats)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)
	notifications.Post("/mark-read", h.Notification.MarkMultipleAsRead)
	notifications.Get("/:id", h.Notification.Get)
	notifications.Patch("/:id", h.Notification.Update)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/:id/archive", h.Notification.Archive)
	notifications.Post("/:id/unarchive", h.Notification.Unarchive)
	notifications.Post("/:id/click", h.Notification.RecordClick)
	notifications.Delete("/:id", h.Notification.Delete)
	notifications.Post("/cleanup", h.Notification.Cleanup)

	preferences := protected.Group("/preferences")
	preferences.Get("/", h.Preference.Get)
	preferences.Patch("/", h.Preference.Update)
	preferences.Post("/reset", h.Preference.Reset)
	preferences.Get("/export", h.Preference.Export)
	preferences.Post("/import", h.Preference.Import)
	preferences.Post("/mute", h.Preference.Mute)
	preferences.Post("/unmute", h.Preference.Unmute)

	devices := protected.Group("/devices")
	devices.Post("/", h.Device.Register)
	devices.Get("/", h.Device.List)
	devices.Post("/deactivate", h.Device.Deactivate)
	devices.Delete("/:id", h.Device.Remove)

	rt := protected.Group("/realtime")
	rt.Post("/announce", h.Realtime.Announce)
	rt.Get("/status", h.Realtime.Status)

	push := protected.Group("/push")
	push.Post("/send", h.Push.SendToUser)
	push.Post("/topic", h.Push.SendToTopic)
	push.Post("/schedule", h.Push.Schedule)
	push.Get("/schedule/:id", h.Push.GetScheduled)
	push.Delete("/schedule/:id", h.Push.CancelScheduled)
	push.Get("/stats", h.Push.GetStats)
	push.Post("/topics/subscribe", h.Push.SubscribeToTopic)
	push.Post("/topics/unsubscribe", h.Push.UnsubscribeFromTopic)
}
