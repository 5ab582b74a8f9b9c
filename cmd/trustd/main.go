package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustlens/internal/api"
	"trustlens/internal/config"
	"trustlens/internal/gateway"
	"trustlens/internal/governance"
	"trustlens/internal/reputation"
	"trustlens/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"gateway", cfg.GatewayURL,
		"network", cfg.Network,
		"contract", cfg.ContractID,
		"log_level", cfg.LogLevel,
	)

	// 3. Initialize database connection
	ctx := context.Background()
	repository, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repository.Close()
	slog.Info("Database connected successfully")

	// 4. Create the contract gateway client
	gw, err := gateway.NewClient(gateway.Config{
		EndpointURL: cfg.GatewayURL,
		Network:     gateway.Network(cfg.Network),
		ContractID:  cfg.ContractID,
		Timeout:     cfg.GatewayTimeout,
		Retry: gateway.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
			Multiplier:  cfg.RetryMultiplier,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create gateway client: %v", err)
	}

	// 5. Domain services
	reputationService := reputation.NewService(repository, cfg.ReputationHalfLife)
	disputeStore := governance.NewStore(cfg.DisputeQuorum)

	// 6. Start the HTTP API
	server := api.NewServer(cfg.APIPort, repository, gw, reputationService, disputeStore)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	// 7. Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
