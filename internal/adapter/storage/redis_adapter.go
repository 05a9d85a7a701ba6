package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix       = "flashsale:stock:"
	stockTombstonePrefix = "flashsale:stock:gone:"
	idempotencyKeyPrefix = "flashsale:idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
	tombstoneTTL         = time.Hour
)

// Remaining stock only ever goes down, so a write carrying a higher value than
// the mirrored one is stale and dropped. The tombstone stops a late write from
// recreating the key of a sale that has already been removed.
var setStockScript = redis.NewScript(`
local key = KEYS[1]
local tombstone = KEYS[2]
local remaining = tonumber(ARGV[1])

if redis.call('EXISTS', tombstone) == 1 then
	return 0
end

local current = redis.call('GET', key)
if current and tonumber(current) <= remaining then
	return 0
end

redis.call('SET', key, remaining)
return 1
`)

// RedisAdapter mirrors remaining stock for readers outside the process and
// holds purchase idempotency keys.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func OpenRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, saleID string, remaining int) error {
	keys := []string{stockKeyPrefix + saleID, stockTombstonePrefix + saleID}
	if err := setStockScript.Run(ctx, r.client, keys, remaining).Err(); err != nil {
		return errors.Wrapf(err, "set stock for sale %s", saleID)
	}
	return nil
}

func (r *RedisAdapter) DeleteStock(ctx context.Context, saleID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, stockKeyPrefix+saleID)
		pipe.Set(ctx, stockTombstonePrefix+saleID, 1, tombstoneTTL)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "delete stock for sale %s", saleID)
	}
	return nil
}

// GetStock reads the mirrored value. ok is false when nothing is mirrored.
func (r *RedisAdapter) GetStock(ctx context.Context, saleID string) (remaining int, ok bool, err error) {
	remaining, err = r.client.Get(ctx, stockKeyPrefix+saleID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "get stock for sale %s", saleID)
	}
	return remaining, true, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, errors.Wrap(err, "set idempotency key")
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "release idempotency key")
	}
	return nil
}
