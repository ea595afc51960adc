package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldline/fieldline/config"
	"github.com/fieldline/fieldline/handler"
	"github.com/fieldline/fieldline/middleware"
	"github.com/fieldline/fieldline/pkg/logger"
	"github.com/fieldline/fieldline/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize stores
	service.InitDocumentStore(&cfg.Store)
	service.InitFieldStores()

	// Snapshot archive is optional; extraction works without it
	var archiveSvc *service.ArchiveService
	if cfg.Minio.Endpoint != "" {
		archiveSvc, err = service.NewArchiveService(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize archive service", "error", err)
			os.Exit(1)
		}
		if err := archiveSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure archive bucket", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no object storage configured, document snapshots disabled")
	}

	llmSvc := service.NewLLMService(&cfg.LLM)
	extractionSvc := service.NewExtractionService(llmSvc)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	documentHandler := handler.NewDocumentHandler()
	extractHandler := handler.NewExtractHandler(extractionSvc, archiveSvc)
	annotationHandler := handler.NewAnnotationHandler()
	fieldHandler := handler.NewFieldHandler()
	signingHandler := handler.NewSigningHandler(&cfg.Signing)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())     // Request ID for tracing
	router.Use(middleware.Recovery())      // Panic recovery
	router.Use(middleware.RequestLogger()) // Access logging
	router.Use(corsMiddleware())           // CORS

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes, rate limited per client IP
	publicLimit := middleware.RateLimit(20, time.Minute)
	api := router.Group("/api")
	{
		api.POST("/auth/login", publicLimit, authHandler.Login)
		api.POST("/signing/callback", publicLimit, signingHandler.HandleCallback)
	}

	// Protected routes. The rate limiter runs after auth so it keys on the
	// authenticated username, not the client IP.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	protected.Use(middleware.RateLimit(100, time.Minute))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/documents", documentHandler.Create)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:id", documentHandler.Get)
		protected.PUT("/documents/:id/content", documentHandler.UpdateContent)
		protected.DELETE("/documents/:id", documentHandler.Delete)

		protected.POST("/documents/:id/extract", extractHandler.Extract)
		protected.GET("/documents/:id/fields", fieldHandler.ListByDocument)
		protected.POST("/fields/:id/value", fieldHandler.FillValue)
		protected.GET("/contacts/:id/fields", fieldHandler.ListByContact)

		protected.POST("/documents/:id/session/annotations", annotationHandler.SetAnnotations)
		protected.POST("/documents/:id/session/click", annotationHandler.Click)
		protected.POST("/documents/:id/session/edits", annotationHandler.Edits)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // extraction streams stay open
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
