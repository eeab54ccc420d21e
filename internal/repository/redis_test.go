package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("PRICING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - set PRICING_TEST_REDIS_ADDR")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisSessionStore(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	store := NewRedisSessionStore(client, time.Minute, logging.NewNop())

	id := uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, sessionKeyPrefix+id) })

	require.NoError(t, store.Create(ctx, &models.Session{ID: id, Order: testOrder(t)}))
	assert.ErrorIs(t, store.Create(ctx, &models.Session{ID: id}), errors.ErrConflict)

	updated, err := store.Update(ctx, id, func(s *models.Session) error {
		e := s.Engine()
		_, applyErr := e.ApplyPromoCode("chuks10")
		s.State = e.State()
		return applyErr
	})
	require.NoError(t, err)
	assert.Equal(t, pricing.Amount(500), updated.State.AppliedDiscount)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "CHUKS10", got.State.AppliedCode)

	ttl, err := client.TTL(ctx, sessionKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = store.Update(ctx, id, func(*models.Session) error { return nil })
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRedisCatalogCache(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	cache := NewRedisCatalogCache(client, time.Minute, logging.NewNop())
	t.Cleanup(func() { client.Del(ctx, catalogKey) })

	require.NoError(t, cache.Invalidate(ctx))
	miss, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, cache.Set(ctx, testOrder(t)))
	hit, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, testOrder(t), *hit)
}
