// Package storage provides the proposal record stores: an embedded SQLite
// database and a Redis backend for shared deployments.
package storage

import (
	"context"
	"fmt"

	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when no record has the requested ID.
var ErrNotFound = proposal.ErrNotFound

// Store is a proposal repository with a connection lifecycle.
type Store interface {
	proposal.Repository
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case constants.StorageDriverSQLite, "":
		path := cfg.SQLite.Path
		if path == "" {
			path = constants.DefaultSQLitePath
		}
		logger.Info("opening sqlite store",
			zap.String("op", "storage.Open"),
			zap.String("path", path),
		)
		store, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case constants.StorageDriverRedis:
		logger.Info("connecting to redis store",
			zap.String("op", "storage.Open"),
			zap.String("address", cfg.Redis.Address),
			zap.Int("db", cfg.Redis.DB),
		)
		store, err := NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
