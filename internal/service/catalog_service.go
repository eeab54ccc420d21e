package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/repository"
)

type catalogSnapshot struct {
	order    pricing.Order
	loadedAt time.Time
}

// CatalogService serves the base order and promo codes. Reads go through a
// process-local snapshot, then the shared cache, then the source.
type CatalogService struct {
	source     repository.CatalogSource
	sourceName string
	cache      repository.CatalogCache
	publisher  events.Publisher
	metrics    *metrics.Metrics
	config     *config.Config
	logger     *logging.Logger

	snapshot atomic.Pointer[catalogSnapshot]
	now      func() time.Time
}

// NewCatalogService creates a new catalog service. cache and publisher may be
// nil; they are also skipped when their feature flags are off.
func NewCatalogService(
	source repository.CatalogSource,
	cache repository.CatalogCache,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *logging.Logger,
) *CatalogService {
	return &CatalogService{
		source:     source,
		sourceName: cfg.Catalog.Source,
		cache:      cache,
		publisher:  publisher,
		metrics:    m,
		config:     cfg,
		logger:     logger.Named("catalog-service"),
		now:        time.Now,
	}
}

func (s *CatalogService) cacheEnabled() bool {
	return s.cache != nil && s.config.Features.EnableCatalogCache
}

func (s *CatalogService) eventsEnabled() bool {
	return s.publisher != nil && s.config.Features.EnableCatalogEvents
}

// Current returns a copy of the current catalog.
func (s *CatalogService) Current(ctx context.Context) (pricing.Order, error) {
	if snap := s.snapshot.Load(); snap != nil && s.now().Sub(snap.loadedAt) < s.config.Catalog.LocalTTL {
		s.metrics.CatalogLoads.WithLabelValues("local").Inc()
		return snap.order.Clone(), nil
	}

	if s.cacheEnabled() {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("Catalog cache read failed", logging.Fields{"error": err})
		} else if cached != nil {
			s.metrics.CatalogLoads.WithLabelValues("cache").Inc()
			s.store(*cached)
			return cached.Clone(), nil
		}
	}

	order, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load catalog", logging.Fields{
			"source": s.sourceName,
			"error":  err,
		})
		return pricing.Order{}, fmt.Errorf("load catalog: %w", err)
	}
	s.metrics.CatalogLoads.WithLabelValues(s.sourceName).Inc()

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, order); err != nil {
			// Log but don't fail
			s.logger.Warn("Failed to cache catalog", logging.Fields{"error": err})
		}
	}

	s.store(order)
	return order.Clone(), nil
}

func (s *CatalogService) store(order pricing.Order) {
	if s.config.Catalog.LocalTTL <= 0 {
		return
	}
	s.snapshot.Store(&catalogSnapshot{order: order.Clone(), loadedAt: s.now()})
}

// Invalidate drops the local snapshot and the shared cache entry.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	s.snapshot.Store(nil)

	if s.cacheEnabled() {
		if err := s.cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate catalog cache: %w", err)
		}
	}
	return nil
}

// UpsertPromoCode creates or changes a promo code. Sessions already running
// keep the catalog they started with.
func (s *CatalogService) UpsertPromoCode(ctx context.Context, code string, discount int64) (string, error) {
	normalized, err := ValidatePromoCodeUpsert(code, discount)
	if err != nil {
		return "", err
	}

	s.logger.Info("Upserting promo code", logging.Fields{
		"code":     normalized,
		"discount": discount,
	})

	if err := s.source.UpsertPromoCode(ctx, normalized, pricing.Amount(discount)); err != nil {
		return "", err
	}

	s.afterChange(ctx, normalized, func(ctx context.Context) error {
		return s.publisher.PublishPromoCodeUpserted(ctx, normalized, pricing.Amount(discount))
	})
	return normalized, nil
}

// DeletePromoCode removes a promo code from the catalog.
func (s *CatalogService) DeletePromoCode(ctx context.Context, code string) error {
	normalized, err := ValidatePromoCode(code)
	if err != nil {
		return err
	}

	s.logger.Info("Deleting promo code", logging.Fields{"code": normalized})

	if err := s.source.DeletePromoCode(ctx, normalized); err != nil {
		return err
	}

	s.afterChange(ctx, normalized, func(ctx context.Context) error {
		return s.publisher.PublishPromoCodeDeleted(ctx, normalized)
	})
	return nil
}

// afterChange invalidates caches and announces the change. Both are best
// effort: the source write has already succeeded.
func (s *CatalogService) afterChange(ctx context.Context, code string, publish func(context.Context) error) {
	if err := s.Invalidate(ctx); err != nil {
		s.logger.Error("Failed to invalidate catalog", logging.Fields{
			"code":  code,
			"error": err,
		})
	}

	if s.eventsEnabled() {
		if err := publish(ctx); err != nil {
			s.logger.Error("Failed to publish catalog event", logging.Fields{
				"code":  code,
				"error": err,
			})
		}
	}
}
