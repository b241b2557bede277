package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/leca/file-gateway/internal/config"
	"github.com/leca/file-gateway/internal/metadata"
	"github.com/leca/file-gateway/internal/router"
	"github.com/leca/file-gateway/internal/source"
	"github.com/leca/file-gateway/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	var store storage.ObjectStore
	if cfg.S3Endpoint != "" {
		s3, err := storage.NewMinio(storage.MinioOptions{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			slog.Error("failed to create object store client", "error", err)
			os.Exit(1)
		}
		store = s3
	} else {
		store = storage.NewFileSystem(cfg.StoragePath)
		slog.Info("no S3 endpoint configured, using filesystem store", "path", cfg.StoragePath)
	}

	resolver := &source.Resolver{
		Meta:          metadata.NewClient(cfg.BackendBaseURL, cfg.FetchTimeout),
		Store:         store,
		HTTP:          &http.Client{Timeout: cfg.FetchTimeout},
		MaxFetchBytes: cfg.MaxFetchBytes,
	}

	srv := router.New(resolver, cfg)

	slog.Info("starting server", "addr", cfg.ListenAddr, "env", cfg.AppEnv, "backend", cfg.BackendBaseURL)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
