// cmd/hub/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fawad-mazhar/skyhub/internal/api/routes"
	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/fawad-mazhar/skyhub/internal/flights"
	"github.com/fawad-mazhar/skyhub/internal/gc"
	"github.com/fawad-mazhar/skyhub/internal/logging"
	"github.com/fawad-mazhar/skyhub/internal/queue"
	"github.com/fawad-mazhar/skyhub/internal/storage/blob"
	"github.com/fawad-mazhar/skyhub/internal/worker"
)

func main() {
	// Load configuration; SKYHUB_CONFIG may point at a YAML file, otherwise
	// environment variables and defaults apply.
	cfg, err := config.Load(os.Getenv("SKYHUB_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	// Initialize result blob store
	store, err := blob.NewClient(cfg.Blob, logger)
	if err != nil {
		log.Fatalf("Failed to open result store: %v", err)
	}
	defer store.Close()

	// Initialize RabbitMQ client
	rmq, err := queue.NewRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	// Build the task registry; the handler set is closed at startup
	registry := worker.NewRegistry()
	flightHandler := flights.NewHandler(cfg.Amadeus, logger)
	if err := registry.Register(flights.TaskName, flightHandler.Run); err != nil {
		log.Fatalf("Failed to register task handler: %v", err)
	}

	executor := worker.NewExecutor(cfg, registry, store, rmq, logger)
	sweeper := gc.NewSweeper(store,
		time.Duration(cfg.Jobs.ResultsExpire)*time.Second,
		time.Duration(cfg.Jobs.SweepInterval)*time.Second,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := executor.Start(ctx); err != nil {
			logger.Error("executor stopped", "error", err)
			cancel()
		}
	}()
	go sweeper.Run(ctx)

	router := routes.SetupRouter(cfg, store, rmq, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port, "env", cfg.EnvName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownTimeout := time.Duration(cfg.Worker.ShutdownTimeout) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during http shutdown", "error", err)
	}
	if err := executor.Shutdown(shutdownTimeout); err != nil {
		logger.Error("error during executor shutdown", "error", err)
	}

	logger.Info("shutdown complete")
}
