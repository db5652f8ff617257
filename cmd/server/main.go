package main

import (
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/internal"
	"chat-relay/repositories"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps every defer reachable, os.Exit is only called by main.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment may be set by the service manager
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	if _, err := internal.CharacterRune(config.CharReplacement); err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Stores, components and routes
	app, err := internal.NewApp(ctx, logger, config)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Closing stores failed", "error", err)
		}
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		url := fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(app.DB(), config.DebugPort, endpoint, EntryMapper)
	}

	errChan := make(chan error, 2)

	// 4. Background workers
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		app.Run(ctx)
	}()

	// 5. gRPC health
	healthAddress := fmt.Sprintf("%s:%d", config.Host, config.HealthPort)
	healthListener, err := net.Listen("tcp", healthAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", healthAddress, err)
	}
	health := server.NewHealthServer(logger)
	go func() {
		if err := health.Serve(healthListener); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()

	// 6. HTTP (REST + WebSocket)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
		stop()
	}

	// 8. Graceful shutdown: health checks first, then clients, then workers
	logger.Info("Shutting down gracefully...")
	health.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked WebSocket connections are not waited for, they end with the process
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	health.Stop()
	<-workersDone

	logger.Info("Program stopped cleanly")
	return code, runErr
}

// EntryMapper renders chat-relay keys in the badger inspector.
func EntryMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	entry := repositories.DescribeEntry(key, val)
	row.Type = entry.Kind
	row.Detail = entry.Detail
	return row
}
