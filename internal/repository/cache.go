package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

const (
	catalogKey      = "pricing:catalog"
	defaultCacheTTL = 5 * time.Minute
)

// RedisCatalogCache shares the catalog snapshot between service replicas.
type RedisCatalogCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *logging.Logger
}

func NewRedisCatalogCache(client redis.UniversalClient, ttl time.Duration, logger *logging.Logger) *RedisCatalogCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("catalog-cache"),
	}
}

func (c *RedisCatalogCache) Get(ctx context.Context) (*pricing.Order, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"key": catalogKey})
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{"key": catalogKey, "error": err})
		return nil, err
	}

	var order pricing.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"key": catalogKey})
	return &order, nil
}

func (c *RedisCatalogCache) Set(ctx context.Context, order pricing.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{"key": catalogKey, "error": err})
		return err
	}

	c.logger.Debug("Catalog cached", logging.Fields{"ttl": c.ttl.String()})
	return nil
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}
