package tokenstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/config"
	"github.com/spec-kit/academia-portal/internal/persistence"
)

// DefaultKey is the storage key under which the session token lives.
const DefaultKey = "authToken"

// Store persists the single session token across restarts.
// After Save(t), Load returns (t, true); after Clear, Load returns ("", false).
// Clear is idempotent.
type Store interface {
	Save(ctx context.Context, token string) error
	Load(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

// Pinger is implemented by stores backed by something that can be unreachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the store selected by cfg.Storage.Driver. The returned closer
// releases any connection the driver holds and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, func(), error) {
	key := cfg.Storage.Key
	if key == "" {
		key = DefaultKey
	}

	switch cfg.Storage.Driver {
	case "memory":
		return NewMemory(), func() {}, nil
	case "file", "":
		return NewFile(cfg.Storage.File, key), func() {}, nil
	case "redis":
		r := persistence.NewRedis(ctx, cfg.Redis, logger)
		return NewRedis(r.Client, cfg.Storage.Prefix+key), r.Close, nil
	case "postgres":
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open postgres token store: %w", err)
		}
		return NewPostgres(pg.PoolHandle(), key), pg.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
