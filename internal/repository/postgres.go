package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_config (
	id           SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	subtotal     BIGINT NOT NULL CHECK (subtotal >= 0),
	delivery_fee BIGINT NOT NULL CHECK (delivery_fee >= 0),
	service_fee  BIGINT NOT NULL CHECK (service_fee >= 0),
	tax          BIGINT NOT NULL CHECK (tax >= 0),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS promo_codes (
	code       TEXT PRIMARY KEY,
	discount   BIGINT NOT NULL CHECK (discount > 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);
`

// undefined_table
const pqUndefinedTable = "42P01"

// ErrSchemaMissing is returned by Load when the catalog tables do not exist.
var ErrSchemaMissing = stderrors.New("catalog schema is missing; run with features.auto_migrate enabled")

// PostgresCatalogRepository reads the catalog from the order_config and
// promo_codes tables.
type PostgresCatalogRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewPostgresCatalogRepository(db *sql.DB, logger *logging.Logger) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db:     db,
		logger: logger.Named("catalog-postgres"),
	}
}

// EnsureSchema creates the catalog tables and, when order_config is empty,
// seeds it and the promo codes from seed.
func (r *PostgresCatalogRepository) EnsureSchema(ctx context.Context, seed pricing.Order) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO order_config (id, subtotal, delivery_fee, service_fee, tax)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, seed.Subtotal, seed.DeliveryFee, seed.ServiceFee, seed.Tax)
	if err != nil {
		return fmt.Errorf("seed order_config: %w", err)
	}

	seeded, _ := res.RowsAffected()
	if seeded == 0 {
		r.logger.Debug("Catalog already seeded")
		return tx.Commit()
	}

	for _, code := range seed.Codes() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO promo_codes (code, discount) VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING
		`, code, seed.PromoCodes[code]); err != nil {
			return fmt.Errorf("seed promo code %s: %w", code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.Info("Catalog seeded", logging.Fields{"promo_codes": len(seed.PromoCodes)})
	return nil
}

// Load reads the base order and all active promo codes.
func (r *PostgresCatalogRepository) Load(ctx context.Context) (pricing.Order, error) {
	var subtotal, deliveryFee, serviceFee, tax int64
	err := r.db.QueryRowContext(ctx, `
		SELECT subtotal, delivery_fee, service_fee, tax
		FROM order_config
		WHERE id = 1
	`).Scan(&subtotal, &deliveryFee, &serviceFee, &tax)
	if err == sql.ErrNoRows {
		return pricing.Order{}, errors.ErrNotFound
	}
	if err != nil {
		return pricing.Order{}, r.wrap("load order_config", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT code, discount
		FROM promo_codes
		WHERE deleted_at IS NULL
	`)
	if err != nil {
		return pricing.Order{}, r.wrap("load promo_codes", err)
	}
	defer rows.Close()

	codes := make(map[string]pricing.Amount)
	for rows.Next() {
		var code string
		var discount int64
		if err := rows.Scan(&code, &discount); err != nil {
			return pricing.Order{}, err
		}
		codes[code] = pricing.Amount(discount)
	}
	if err := rows.Err(); err != nil {
		return pricing.Order{}, err
	}

	order, err := pricing.NewOrder(
		pricing.Amount(subtotal),
		pricing.Amount(deliveryFee),
		pricing.Amount(serviceFee),
		pricing.Amount(tax),
		codes,
	)
	if err != nil {
		return pricing.Order{}, fmt.Errorf("catalog rows are inconsistent: %w", err)
	}

	r.logger.Debug("Catalog loaded", logging.Fields{"promo_codes": len(codes)})
	return order, nil
}

// UpsertPromoCode creates the code or revives and updates it.
func (r *PostgresCatalogRepository) UpsertPromoCode(ctx context.Context, code string, discount pricing.Amount) error {
	code = pricing.NormalizeCode(code)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO promo_codes (code, discount, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (code) DO UPDATE
		SET discount = EXCLUDED.discount, updated_at = EXCLUDED.updated_at, deleted_at = NULL
	`, code, int64(discount), time.Now())
	if err != nil {
		r.logger.Error("Failed to upsert promo code", logging.Fields{"code": code, "error": err})
		return r.wrap("upsert promo code", err)
	}

	r.logger.Info("Promo code saved", logging.Fields{"code": code, "discount": int64(discount)})
	return nil
}

// DeletePromoCode soft-deletes an active code.
func (r *PostgresCatalogRepository) DeletePromoCode(ctx context.Context, code string) error {
	code = pricing.NormalizeCode(code)
	now := time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE promo_codes
		SET deleted_at = $2, updated_at = $2
		WHERE code = $1 AND deleted_at IS NULL
	`, code, now)
	if err != nil {
		return r.wrap("delete promo code", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return errors.ErrNotFound
	}

	r.logger.Info("Promo code deleted", logging.Fields{"code": code})
	return nil
}

func (r *PostgresCatalogRepository) wrap(op string, err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable {
		return fmt.Errorf("%s: %w", op, ErrSchemaMissing)
	}
	return fmt.Errorf("%s: %w", op, err)
}
