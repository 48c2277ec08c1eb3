package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/shopping-list/internal/adapter/storage"
	"github.com/rl1809/shopping-list/internal/config"
	"github.com/rl1809/shopping-list/internal/core/domain"
	"github.com/rl1809/shopping-list/internal/core/service"
	"github.com/rl1809/shopping-list/internal/port"
)

// App holds the storage handles and services shared by the server and the CLI.
type App struct {
	DB      *storage.SQLAdapter
	Catalog *service.CatalogService
	Ledger  *service.LedgerService
	Query   *service.QueryService

	redis *redis.Client
}

// New connects the configured database and, when redis.addr is set, Redis.
// Without Redis, item locks and the seen cache are process-local.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	slog.Debug("connected to database", "driver", cfg.Database.Driver)

	var (
		cache port.CacheRepository
		rdb   *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			db.Close()
			return nil, fmt.Errorf("%w: ping redis %s: %v", domain.ErrStorageUnavailable, cfg.Redis.Addr, err)
		}
		slog.Debug("connected to redis", "addr", cfg.Redis.Addr)
		cache = storage.NewRedisAdapter(rdb, cfg.Redis.LockTTL)
	} else {
		cache = storage.NewMemoryCache(0)
	}

	catalog := service.NewCatalogService(db)
	ledger := service.NewLedgerService(db, cache, time.Now)

	return &App{
		DB:      db,
		Catalog: catalog,
		Ledger:  ledger,
		Query:   service.NewQueryService(catalog, ledger),
		redis:   rdb,
	}, nil
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}
