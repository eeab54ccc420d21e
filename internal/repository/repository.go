package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

// CatalogSource is the system of record for the base order and promo codes.
type CatalogSource interface {
	Load(ctx context.Context) (pricing.Order, error)
	UpsertPromoCode(ctx context.Context, code string, discount pricing.Amount) error
	DeletePromoCode(ctx context.Context, code string) error
}

// CatalogCache holds a shared snapshot of the catalog. Get returns nil, nil
// on a miss.
type CatalogCache interface {
	Get(ctx context.Context) (*pricing.Order, error)
	Set(ctx context.Context, order pricing.Order) error
	Invalidate(ctx context.Context) error
}

// SessionStore keeps sessions for their lifetime. Update applies fn to the
// stored session atomically with respect to other updates of the same ID;
// if fn returns an error nothing is written.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}
