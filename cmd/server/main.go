package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/raven-go"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/config"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/handlers"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/upload"
)

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.SentryDSN != "" {
		if err := raven.SetDSN(cfg.SentryDSN); err != nil {
			logger.Warn("failed to configure sentry", zap.Error(err))
		}
	}

	ctx := context.Background()
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	stores, closeStores, err := store.Open(connectCtx, cfg.DatabaseBackend, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if cfg.DatabaseBackend == "memory" {
		logger.Warn("using the in-memory database; data is lost on restart")
	}

	storage, err := newStorage(ctx, cfg, stores)
	if err != nil {
		logger.Fatal("failed to set up file storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	scanner, err := newScanner(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to set up virus scanner", zap.String("scanner", cfg.VirusScanner), zap.Error(err))
	}
	var scaler upload.ImageScaler = upload.NoopScaler{}
	if cfg.ImageScaler == "resize" {
		scaler = upload.NewResizeScaler(cfg.ImageMaxWidth)
	}
	pipeline := upload.NewPipeline(scanner, scaler, storage)

	handlers.ConfigureGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, cfg.SessionSecret, !cfg.IsDevelopment())

	opts := handlers.Options{
		ClientURL:     cfg.ClientURL,
		SecureCookies: !cfg.IsDevelopment(),
		MaxUploadMB:   cfg.MaxUploadSizeMB,
		DefaultLimit:  cfg.DefaultPageLimit,
		MaxBans:       cfg.MaxBans,
	}
	if local, ok := storage.(*upload.LocalStorage); ok {
		opts.LocalUploadDir = local.Dir()
	}

	router := handlers.NewRouter(handlers.Deps{
		Stores:  stores,
		Tokens:  services.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL),
		Photos:  pipeline,
		Logger:  logger,
		Options: opts,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.ServerAddress), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if closer, ok := storage.(interface{ Close() error }); ok {
		closer.Close()
	}
	if err := closeStores(shutdownCtx); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newScanner(ctx context.Context, cfg *config.Config) (upload.VirusScanner, error) {
	switch cfg.VirusScanner {
	case "virustotal":
		return upload.NewVirusTotalScanner(cfg.VirusTotalAPIKey), nil
	case "safesearch":
		return upload.NewSafeSearchScanner(ctx)
	}
	return upload.NoopScanner{}, nil
}

func newStorage(ctx context.Context, cfg *config.Config, stores *store.Collections) (upload.FileStorage, error) {
	switch cfg.StorageBackend {
	case "gcs":
		return upload.NewGCSStorage(ctx, cfg.GCSBucket)
	case "s3":
		return upload.NewS3Storage(cfg.S3Bucket, cfg.S3Region, cfg.AWSAccessKey, cfg.AWSSecretKey)
	case "imgur":
		configs := services.NewConfigurationService(stores.Configurations, stores.Tx)
		return upload.NewImgurStorage(cfg.ImgurClientID, cfg.ImgurClientSecret, cfg.ImgurAlbum, configs), nil
	}
	return upload.NewLocalStorage(cfg.UploadDir, cfg.PublicURL)
}
