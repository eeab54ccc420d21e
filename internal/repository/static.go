package repository

import (
	"context"
	"sync"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

// StaticCatalogRepository serves the catalog from configuration. Admin
// changes live in memory only and are lost on restart.
type StaticCatalogRepository struct {
	mu    sync.RWMutex
	order pricing.Order
}

func NewStaticCatalogRepository(order pricing.Order) *StaticCatalogRepository {
	return &StaticCatalogRepository{order: order.Clone()}
}

func (r *StaticCatalogRepository) Load(ctx context.Context) (pricing.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order.Clone(), nil
}

func (r *StaticCatalogRepository) UpsertPromoCode(ctx context.Context, code string, discount pricing.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order.PromoCodes[pricing.NormalizeCode(code)] = discount
	return nil
}

func (r *StaticCatalogRepository) DeletePromoCode(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code = pricing.NormalizeCode(code)
	if _, ok := r.order.PromoCodes[code]; !ok {
		return errors.ErrNotFound
	}
	delete(r.order.PromoCodes, code)
	return nil
}
