package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/adapter/storage"
	"github.com/rl1809/flashsale-engine/internal/config"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/port"
)

const connectTimeout = 10 * time.Second

var StorageModule = fx.Module("storage",
	fx.Provide(
		NewSinks,
		NewRedis,
	),
)

// Sinks are where restocks and delivery records end up.
type Sinks struct {
	fx.Out

	Catalog    port.CatalogRepository
	Deliveries port.DeliveryRepository
}

func NewSinks(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Sinks, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch cfg.Storage.Driver {
	case config.StorageDriverMySQL:
		db, err := storage.OpenMySQL(ctx, cfg.Storage.MySQLDSN)
		if err != nil {
			return Sinks{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return db.Close()
			},
		})

		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return Sinks{}, err
		}
		logger.Info("using mysql storage")
		return Sinks{Catalog: adapter, Deliveries: adapter}, nil

	case config.StorageDriverPostgres:
		pool, err := storage.OpenPostgres(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return Sinks{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				pool.Close()
				return nil
			},
		})

		adapter := storage.NewPostgresAdapter(pool)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return Sinks{}, err
		}
		logger.Info("using postgres storage")
		return Sinks{Catalog: adapter, Deliveries: adapter}, nil

	default:
		logger.Info("using in-memory storage, restocks and deliveries are not persisted")
		return Sinks{
			Catalog:    storage.NewMemoryCatalog(),
			Deliveries: storage.NewMemoryDeliveries(),
		}, nil
	}
}

// Redis provides the idempotency guard and, when Redis is configured, the
// stock mirror. Mirror is nil without Redis.
type Redis struct {
	fx.Out

	Guard  port.IdempotencyGuard
	Mirror port.StockMirror
}

func NewRedis(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, logger *zap.Logger) (Redis, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("redis not configured, using in-memory idempotency keys")
		return Redis{Guard: storage.NewMemoryIdempotency(clk)}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := storage.OpenRedis(ctx, storage.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return Redis{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	adapter := storage.NewRedisAdapter(client)
	return Redis{Guard: adapter, Mirror: adapter}, nil
}
