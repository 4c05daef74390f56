package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/vlogadmin/internal/asset"
	"github.com/vbonduro/vlogadmin/internal/asset/cloudinary"
	"github.com/vbonduro/vlogadmin/internal/asset/gcs"
	"github.com/vbonduro/vlogadmin/internal/asset/local"
	"github.com/vbonduro/vlogadmin/internal/asset/s3"
	"github.com/vbonduro/vlogadmin/internal/config"
	"github.com/vbonduro/vlogadmin/internal/db"
	"github.com/vbonduro/vlogadmin/internal/session"
	"github.com/vbonduro/vlogadmin/internal/store"
	"github.com/vbonduro/vlogadmin/internal/store/firestore"
)

// openSQL opens the relational database selected by cfg, migrating it on the
// way. Test mode always uses a private in-memory sqlite database.
func openSQL(ctx context.Context, cfg *config.Config) (*sql.DB, db.Dialect, error) {
	switch {
	case cfg.TestMode:
		d, err := db.OpenForTesting()
		return d, db.SQLite, err
	case cfg.StoreBackend == "postgres":
		d, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		return d, db.Postgres, err
	case cfg.StoreBackend == "sqlite":
		d, err := db.Open(cfg.DBPath)
		return d, db.SQLite, err
	default:
		return nil, "", fmt.Errorf("store backend %q has no SQL schema", cfg.StoreBackend)
	}
}

// openStore returns the document collections for cfg.StoreBackend and a
// function that releases them.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Set, func(), error) {
	if cfg.StoreBackend == "firestore" && !cfg.TestMode {
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject, cfg.GoogleCredsFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using firestore store", "project", cfg.FirestoreProject)
		return firestore.NewSet(client), func() { closeWithLog(client, "firestore client", logger) }, nil
	}

	d, dialect, err := openSQL(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using sql store", "dialect", string(dialect))
	return store.NewSQLSet(d, dialect), func() { closeWithLog(d, "database", logger) }, nil
}

// openAssets returns the uploader for cfg.AssetBackend. The local backend is
// also returned as *local.Store so the server can read files back.
func openAssets(ctx context.Context, cfg *config.Config, logger *slog.Logger) (asset.Uploader, *local.Store, func(), error) {
	backend := cfg.AssetBackend
	if cfg.TestMode {
		backend = "local"
	}
	noop := func() {}

	switch backend {
	case "cloudinary":
		if cfg.CloudinaryCloud == "" {
			return nil, nil, nil, fmt.Errorf("CLOUDINARY_CLOUD is required when ASSET_BACKEND=cloudinary")
		}
		logger.Info("using cloudinary assets", "cloud", cfg.CloudinaryCloud, "preset", cfg.CloudinaryPreset)
		return cloudinary.NewUploader(cfg.CloudinaryCloud, cfg.CloudinaryPreset, cfg.CloudinaryBaseURL), nil, noop, nil
	case "local":
		st, err := local.NewStore(cfg.AssetPath, cfg.AssetBaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using local assets", "path", cfg.AssetPath)
		return st, st, noop, nil
	case "gcs":
		up, err := gcs.NewUploader(ctx, cfg.GCSBucket, cfg.GoogleCredsFile)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using gcs assets", "bucket", cfg.GCSBucket)
		return up, nil, func() { closeWithLog(up, "gcs client", logger) }, nil
	case "s3":
		up, err := s3.NewUploader(s3.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using s3 assets", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return up, nil, noop, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown asset backend %q", backend)
	}
}

// openSessions returns the session store for cfg.SessionBackend.
func openSessions(cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.SessionBackend != "redis" || cfg.TestMode {
		logger.Info("using in-memory sessions")
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}
	rs, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis sessions")
	return rs, func() { closeWithLog(rs, "redis client", logger) }, nil
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, what string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close "+what, "error", err)
	}
}
