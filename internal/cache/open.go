package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brainscore/brainscore/internal/config"
	"github.com/brainscore/brainscore/internal/storage"
)

// Open creates the store selected by cfg.Backend. st is only used by the
// object backend and may be nil otherwise.
func Open(ctx context.Context, cfg config.CacheConfig, st storage.ObjectStorage, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		return NewMemoryStore(), nil

	case config.CacheBackendSQLite:
		return OpenSQLite(cfg.Path)

	case config.CacheBackendBadger:
		return OpenBadger(BadgerConfig{Path: cfg.Path, Logger: logger})

	case config.CacheBackendRedis:
		client := NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisStore(client, cfg.Prefix), nil

	case config.CacheBackendObject:
		if st == nil {
			return nil, fmt.Errorf("object cache backend requires object storage")
		}
		return NewObjectStore(st, cfg.Prefix), nil

	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
