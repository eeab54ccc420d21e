package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/models"
)

const (
	sessionKeyPrefix = "pricing:session:"
	maxUpdateRetries = 5
)

// RedisSessionStore keeps each session under its own key with a sliding TTL.
// Updates use WATCH/MULTI so two requests for one session cannot both
// redeem a promo code.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *logging.Logger
}

func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration, logger *logging.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("session-redis"),
	}
}

func (s *RedisSessionStore) Create(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, sessionKeyPrefix+session.ID, data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrConflict
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

func (s *RedisSessionStore) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	key := sessionKeyPrefix + id
	var updated *models.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}

		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}

		out, err := json.Marshal(session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			s.logger.Debug("Session update raced, retrying", logging.Fields{
				"session_id": id,
				"attempt":    attempt + 1,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, errors.ErrConflict
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func decodeSession(data []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
