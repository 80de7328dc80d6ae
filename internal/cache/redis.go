package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lowStockKey    = "inventory:low_stock"
	lowStockGenKey = "inventory:low_stock:gen"
)

type RedisClient struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

var _ service.LowStockCache = (*RedisClient)(nil)

func NewRedisClient(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", addr))

	return newRedisClient(rdb, "", ttl, log), nil
}

func newRedisClient(rdb *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *RedisClient {
	return &RedisClient{
		client: rdb,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
	}
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) GetLowStock(ctx context.Context) ([]models.Inventory, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+lowStockKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var items []models.Inventory
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal: %w", err)
	}
	r.log.Debug("low stock cache hit", zap.Int("items", len(items)))
	return items, true, nil
}

func (r *RedisClient) LowStockGeneration(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.prefix+lowStockGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

// SetLowStock stores items only if the generation is still gen. The generation key is
// watched, so an invalidation landing between the check and the write aborts the write.
func (r *RedisClient) SetLowStock(ctx context.Context, items []models.Inventory, gen int64) (bool, error) {
	if items == nil {
		items = []models.Inventory{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("cache marshal: %w", err)
	}

	genKey := r.prefix + lowStockGenKey
	stored := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.prefix+lowStockKey, data, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache set: %w", err)
	}
	return stored, nil
}

// InvalidateLowStock bumps the generation and drops the cached set in one MULTI.
func (r *RedisClient) InvalidateLowStock(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, r.prefix+lowStockGenKey)
		pipe.Del(ctx, r.prefix+lowStockKey)
		return nil
	})
	return err
}
