package storage

import (
	"context"
	"fmt"

	"github.com/thraizz/mtg-horde-go/internal/config"
	"go.uber.org/zap"
)

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", config.DriverMemory:
		logger.Info("using in-memory save store")
		return NewMemoryStore(), nil
	case config.DriverFile:
		logger.Info("using file save store", zap.String("directory", cfg.File.Directory))
		return NewFileStore(cfg.File.Directory)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.Postgres, logger)
	case config.DriverS3:
		logger.Info("using s3 save store",
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("prefix", cfg.S3.Prefix),
		)
		return NewS3Store(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
