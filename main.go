package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturio/config"
	"github.com/yourusername/facturio/handlers"
	"github.com/yourusername/facturio/middleware"
	"github.com/yourusername/facturio/ocr"
	"github.com/yourusername/facturio/repository"
	"github.com/yourusername/facturio/search"
	"github.com/yourusername/facturio/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)

	// External adapters
	extractor := ocr.NewClient(cfg.OCRAPIURL, cfg.OCRAPIKey, cfg.OCRModel, cfg.OCRTimeout, logger)
	indexer := search.NewSolrClient(cfg.SolrURL, cfg.SolrTimeout, logger)

	// Services
	documentService, err := services.NewDocumentService(cfg.UploadDir, logger)
	if err != nil {
		log.Fatalf("Failed to set up upload directory: %v", err)
	}
	invoiceService := services.NewInvoiceService(db, invoiceRepo, lineItemRepo, indexer, logger)
	exportService := services.NewExportService(invoiceRepo, lineItemRepo, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, exportService)
	uploadHandler := handlers.NewUploadHandler(documentService, extractor, invoiceService)
	searchHandler := handlers.NewSearchHandler(invoiceService)

	// Setup router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "facturio-api",
		})
	})

	// Public routes
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/auth/refresh", authHandler.Refresh)

	// Protected routes
	auth := router.Group("/", middleware.JwtAuthMiddleware(cfg))
	{
		auth.GET("/invoices", invoiceHandler.List)
		auth.GET("/invoices/export", invoiceHandler.ExportXLSX)
		auth.GET("/invoices/:id", invoiceHandler.Get)
		auth.GET("/invoices/:id/pdf", invoiceHandler.ExportPDF)
		auth.POST("/invoices", invoiceHandler.Create)
		auth.PUT("/invoices/:id", invoiceHandler.Update)
		auth.DELETE("/invoices/:id", invoiceHandler.Delete)

		auth.POST("/upload", uploadHandler.Upload)
		auth.POST("/upload/analyze", uploadHandler.Analyze)

		auth.GET("/search", searchHandler.Search)
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting facturio API server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
