package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/excel"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/api"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/config"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/dataset"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/ingestion"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/normalize"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/quality"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/report"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(appConfig.LogLevel)
	internal.DefaultLogger = logger
	clock := core.SystemClock()

	reports, err := report.NewGenerator(appConfig.Reports.Dir, clock, logger)
	if err != nil {
		log.Fatalf("Failed to initialize report generator: %v", err)
	}

	reader := excel.DefaultReaderConfig()
	reader.MaxBytes = appConfig.Ingestion.MaxUploadBytes()

	services := api.Services{
		Ingestion: ingestion.NewService(ingestion.Config{
			Reader:      reader,
			Concurrency: appConfig.Ingestion.Concurrency,
		}, clock, logger),
		Normalizer: normalize.NewNormalizer(clock, logger),
		Merger:     dataset.NewMerger(clock, logger),
		Quality:    quality.NewChecker(clock, logger),
		Reports:    reports,
		Store: dataset.NewMemoryStore(dataset.StorageConfig{
			Capacity: appConfig.Storage.Capacity,
			TTL:      appConfig.Storage.TTL,
		}, clock, logger),
	}
	server := api.NewServer(services, api.Config{
		MaxUploadBytes: appConfig.Ingestion.MaxUploadBytes(),
		TargetCurrency: appConfig.Pipeline.TargetCurrency,
	}, clock, logger)

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting Marketing Data Engine on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
