// Package main provides the HTTP entry point for the ihancer upload relay
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/ihancer-relay/app/handlers"
	"github.com/amirphl/ihancer-relay/app/router"
	"github.com/amirphl/ihancer-relay/app/services"
	businessflow "github.com/amirphl/ihancer-relay/business_flow"
	"github.com/amirphl/ihancer-relay/config"
	"github.com/amirphl/ihancer-relay/utils"
	"github.com/gofiber/fiber/v3"
)

// Application represents the main application structure
type Application struct {
	router router.Router
	config *config.ProductionConfig
	server *fiber.App
}

func main() {
	log.Println("Starting ihancer relay...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeApplication wires logging, the enhancement provider, the relay flow and the router
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	logWriter, err := utils.NewLogWriter(utils.LogOutput{
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log output: %w", err)
	}
	log.SetOutput(logWriter)
	if cfg.Logging.Level == "debug" {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	provider, err := services.NewEnhancementProvider(cfg.Enhancer)
	if err != nil {
		return nil, err
	}
	log.Printf("Enhancement provider: %s", provider.Name())

	enhanceFlow := businessflow.NewEnhanceFlow(provider)
	enhanceHandler := handlers.NewEnhanceHandler(enhanceFlow, cfg.Upload, cfg.Server.RequestTimeout)

	r := router.NewFiberRouter(cfg, logWriter, enhanceHandler)

	log.Printf("Application initialized: env=%s version=%s commit=%s",
		cfg.Deployment.Environment, cfg.Deployment.Version, cfg.Deployment.CommitHash)

	return &Application{
		router: r,
		config: cfg,
		server: r.GetApp(),
	}, nil
}
