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

	"studio-admin/config"
	"studio-admin/db"
	"studio-admin/handlers"
	"studio-admin/mailer"
	"studio-admin/middleware"
	"studio-admin/scheduler"
	"studio-admin/storage"
	"studio-admin/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Persistence and collaborators
	deliveryLogs := store.NewDeliveryLogs(db.Pool)
	templates := store.NewTemplates(db.Pool)

	var objects *storage.Client
	if cfg.CloudinaryURL != "" {
		objects, err = storage.NewClient(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
	} else {
		log.Println("CLOUDINARY_URL not set, media uploads disabled")
	}

	dispatcher := &mailer.Dispatcher{
		Logs:      deliveryLogs,
		Templates: templates,
		Transport: mailer.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		Sender:    cfg.FromEmail,
		Timeout:   cfg.SendTimeout,
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Studio Admin API",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "*",
	}))

	// Routes
	api := app.Group("/api")

	// Auth endpoints
	auth := api.Group("/auth")
	auth.Post("/request-otp", handlers.RequestOTPHandler(cfg, dispatcher))
	auth.Post("/verify-otp", handlers.VerifyOTPHandler(cfg))
	auth.Post("/logout", middleware.RequireAdmin, handlers.LogoutHandler())

	// Form submissions: intake is public, everything else is admin
	submissions := api.Group("/submissions")
	submissions.Post("/", handlers.CreateSubmissionHandler(cfg, dispatcher))
	submissions.Get("/", middleware.RequireAdmin, handlers.ListSubmissionsHandler)
	submissions.Get("/:id", middleware.RequireAdmin, handlers.GetSubmissionHandler)
	submissions.Delete("/:id", middleware.RequireAdmin, handlers.DeleteSubmissionHandler)

	// Email templates
	tpl := api.Group("/templates", middleware.RequireAdmin)
	tpl.Post("/", handlers.CreateTemplateHandler(templates))
	tpl.Get("/", handlers.ListTemplatesHandler(templates))
	tpl.Get("/:id", handlers.GetTemplateHandler(templates))
	tpl.Put("/:id", handlers.UpdateTemplateHandler(templates))
	tpl.Delete("/:id", handlers.DeleteTemplateHandler(templates, objects))
	tpl.Post("/:id/attachments", handlers.UploadTemplateAttachmentHandler(templates, objects))

	// Media gallery: listing is public, mutation is admin
	media := api.Group("/media")
	media.Get("/", handlers.ListMediaHandler)
	media.Post("/", middleware.RequireAdmin, handlers.UploadMediaHandler(objects))
	media.Delete("/:id", middleware.RequireAdmin, handlers.DeleteMediaHandler(objects))

	// Mail endpoints
	mail := api.Group("/mail", middleware.RequireAdmin)
	mail.Post("/send", handlers.SendEmailHandler(dispatcher))
	mail.Post("/send-template", handlers.SendTemplateHandler(dispatcher))
	mail.Post("/retry-failed", handlers.RetryFailedHandler(dispatcher))
	mail.Get("/logs", handlers.ListDeliveryLogsHandler(deliveryLogs))
	mail.Get("/logs/:id", handlers.GetDeliveryLogHandler(deliveryLogs))
	mail.Delete("/logs/:id", handlers.DeleteDeliveryLogHandler(deliveryLogs))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	// Optional background retry of failed sends
	scheduler.StartRetryJob(dispatcher, cfg.RetryInterval)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
