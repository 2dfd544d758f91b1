package main

import (
	"log"
	"time"

	"annotation-service/internal/config"
	"annotation-service/internal/handlers"
	"annotation-service/internal/metrics"
	"annotation-service/internal/middleware"
	"annotation-service/internal/models"
	"annotation-service/internal/notification"
	"annotation-service/internal/repository"
	"annotation-service/internal/services"
	"annotation-service/internal/storage"

	_ "annotation-service/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const exchangeRateCacheTTL = 10 * time.Minute

func main() {
	cfg := InitConfig()
	db := ConnectDatabase(cfg)
	MigrateDatabase(db)
	minioClient := InitMinIOClient(cfg)
	redisClient := InitRedisClient(cfg)

	m := metrics.NewMetrics()
	sender := notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	dispatcher := notification.NewDispatcher(sender, m)

	projectRepo := repository.NewProjectRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	rateSource := services.NewCachedRateSource(
		services.NewHTTPRateSource(cfg.ExchangeRateURL), redisClient, exchangeRateCacheTTL)
	exchangeService := services.NewExchangeService(rateSource)

	projectService := services.NewProjectService(projectRepo, applicationRepo, dispatcher, m, cfg.ProjectsOfficerEmail)
	applicationService := services.NewApplicationService(applicationRepo, projectRepo, workerRepo, dispatcher, m)
	invoiceService := services.NewInvoiceService(invoiceRepo, projectRepo, workerRepo, applicationRepo, dispatcher, m)
	payoutService := services.NewPayoutService(invoiceRepo, workerRepo, exchangeService, m)
	attachmentService := services.NewAttachmentService(workerRepo, minioClient, cfg.MinioBucket, cfg.MinioPublicURL)

	app := fiber.New()

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	ph := handlers.NewProjectHandler(projectService)
	ah := handlers.NewApplicationHandler(applicationService)
	ih := handlers.NewInvoiceHandler(invoiceService, payoutService)
	wh := handlers.NewWorkerHandler(workerRepo, attachmentService)

	api := app.Group("/api/v1")
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	admin := middleware.RequireAdmin()

	projects := api.Group("/projects", auth)
	projects.Get("/", ph.ListProjects)
	projects.Get("/:id", ph.GetProject)
	projects.Post("/", admin, ph.CreateProject)
	projects.Patch("/:id", admin, ph.UpdateProject)
	projects.Delete("/:id", admin, ph.DeleteProject)
	projects.Post("/:id/deletion-otp", admin, ph.RequestDeletionOTP)
	projects.Post("/:id/deletion-otp/verify", admin, ph.VerifyOTPAndDelete)
	projects.Post("/:id/applications", ah.Apply)
	projects.Get("/:id/applications", admin, ah.ListByProject)

	applications := api.Group("/applications", auth)
	applications.Get("/:id", ah.GetApplication)
	applications.Patch("/:id/approve", admin, ah.Approve)
	applications.Patch("/:id/reject", admin, ah.Reject)
	applications.Post("/bulk-reject", admin, ah.BulkReject)
	applications.Patch("/:id/remove", admin, ah.RemoveApproved)
	applications.Patch("/:id/withdraw", ah.Withdraw)
	applications.Post("/:id/assessment", admin, ah.SubmitAssessment)

	invoices := api.Group("/invoices", auth, admin)
	invoices.Post("/", ih.CreateInvoice)
	invoices.Get("/", ih.ListInvoices)
	invoices.Get("/export/paystack", ih.ExportPaystackCSV)
	invoices.Get("/export/mpesa", ih.ExportMPESACSV)
	invoices.Get("/:id", ih.GetInvoice)
	invoices.Patch("/:id/status", ih.UpdatePaymentStatus)
	invoices.Delete("/:id", ih.DeleteInvoice)
	invoices.Post("/bulk-authorize", ih.BulkAuthorizePayment)

	workers := api.Group("/workers", auth)
	workers.Get("/me", wh.GetMe)
	workers.Post("/me/resume", wh.UploadResume)
	workers.Post("/me/portfolio", wh.UploadPortfolio)
	workers.Patch("/:id/status", admin, wh.UpdateAnnotatorStatus)

	routes := app.GetRoutes()
	log.Println("Registered routes:")
	for _, r := range routes {
		log.Printf("  %s %s\n", r.Method, r.Path)
	}

	// Start the Fiber server
	port := cfg.AppPort
	if port == "" {
		port = "8080"
		log.Printf("Defaulting to port %s", port)
	}
	log.Printf("Server listening on port %s", port)
	err := app.Listen(":" + port)
	if cerr := redisClient.Close(); cerr != nil {
		log.Printf("Redis close failed: %v", cerr)
	}
	if err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func ConnectDatabase(cfg *config.Config) *gorm.DB {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

func MigrateDatabase(db *gorm.DB) {
	err := db.AutoMigrate(&models.Worker{}, &models.Project{}, &models.Application{}, &models.Invoice{})
	if err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

func InitMinIOClient(cfg *config.Config) *minio.Client {
	minioClient, err := storage.NewMinioClient(cfg)
	if err != nil {
		log.Fatalf("MinIO client initialization failed: %v", err)
	}
	return minioClient
}

func InitRedisClient(cfg *config.Config) *storage.RedisClient {
	redisClient, err := storage.NewRedisClient(cfg.RedisHost, cfg.RedisPort)
	if err != nil {
		log.Fatalf("Redis client initialization failed: %v", err)
	}
	return redisClient
}
