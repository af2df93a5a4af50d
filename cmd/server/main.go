package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabdocs/internal/api"
	"collabdocs/internal/auth"
	"collabdocs/internal/config"
	"collabdocs/internal/db"
	"collabdocs/internal/repository"
	"collabdocs/internal/services/collaboration"
	"collabdocs/internal/telemetry"
)

func main() {
	log.Println("🚀 Starting collaborative document workspace...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Initialize Jaeger tracing first so all operations are traced
	jaegerShutdown, err := telemetry.InitJaeger("collabdocs", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	// Initialize GORM database
	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(database.DB)
	dirRepo := repository.NewDirectoryRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	accessRepo := repository.NewAccessRepository(database.DB)

	// Auth service for signup/login and route guarding
	authSvc := auth.NewService(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Collaboration hub; document rooms seed their content from the store
	hub := collaboration.NewDocumentManager(docRepo)
	hub.Start()

	wsHandler := collaboration.NewWebSocketHandler(hub)

	// Initialize handlers with dependency injection
	handler := api.NewHandler(userRepo, dirRepo, docRepo, accessRepo, authSvc, wsHandler, hub)

	// Setup routes
	router := api.SetupRoutes(handler)

	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run the server in a goroutine so shutdown signals can be handled
	go func() {
		log.Printf("✓ Server listening on http://%s", cfg.ServerAddr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Stop accepting new HTTP traffic, then close the hub's sockets
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	hub.Shutdown()

	log.Println("✓ Server exited cleanly")
}
