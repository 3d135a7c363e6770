package credstore

import (
	"context"
	"fmt"

	"github.com/mizphses/kips/internal/server/config"
)

// NewStore builds the store selected by cfg.StoreBackend.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		return NewMemoryStore(), nil
	case config.StoreBackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	case config.StoreBackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
