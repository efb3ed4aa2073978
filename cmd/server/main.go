package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/cancer-api/internal/config"
	"github.com/Brownie44l1/cancer-api/internal/handlers"
	"github.com/Brownie44l1/cancer-api/internal/logging"
	"github.com/Brownie44l1/cancer-api/internal/model"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
	"github.com/Brownie44l1/cancer-api/internal/preprocess"
	"github.com/Brownie44l1/cancer-api/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	predictions, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer predictions.Close()

	metadata := model.NewMetadata(cfg.Model.InputName, cfg.Model.OutputName, cfg.Model.ImageSize, cfg.Model.Layout)
	classifier := model.NewHandle()
	defer classifier.Close()

	logger.Info("loading model", "url", cfg.Model.URL, "input_shape", metadata.InputShape)
	downloader := &http.Client{Timeout: cfg.Model.DownloadTimeout}
	classifier.Load(ctx, model.ONNXLoader(downloader, cfg.Model.URL, metadata, cfg.Model.LibraryPath))

	svc := prediction.NewService(prediction.Config{
		Threshold:      cfg.Model.Threshold,
		ImageSize:      cfg.Model.ImageSize,
		Layout:         preprocess.Layout(cfg.Model.Layout),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		MaxPixels:      cfg.Model.MaxPixels,
	}, classifier, predictions, logger)

	handler := handlers.NewHandler(svc, classifier, cfg.Server.MaxUploadBytes, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handlers.NewRouter(handler, cfg.Server.AllowedOrigin),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver)
		serveErr <- srv.ListenAndServe()
	}()

	// The server accepts requests while the model loads; they fail until
	// the handle is ready. A failed load stops the process.
	modelDone := classifier.Done()
	var runErr error
loop:
	for {
		select {
		case <-modelDone:
			modelDone = nil
			if classifier.State() == model.StateFailed {
				runErr = fmt.Errorf("load model: %w", classifier.Err())
				break loop
			}
			logger.Info("model loaded", "threshold", cfg.Model.Threshold, "image_size", cfg.Model.ImageSize)
		case err := <-serveErr:
			if !errors.Is(err, http.ErrServerClosed) {
				runErr = fmt.Errorf("serve: %w", err)
			}
			break loop
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			break loop
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	logger.Info("server stopped")
	return runErr
}
