package service

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/repository"
)

type memoryCache struct {
	mu          sync.Mutex
	order       *pricing.Order
	gets        int
	invalidates int
	err         error
}

func (c *memoryCache) Get(ctx context.Context) (*pricing.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	if c.order == nil {
		return nil, nil
	}
	out := c.order.Clone()
	return &out, nil
}

func (c *memoryCache) Set(ctx context.Context, order pricing.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	out := order.Clone()
	c.order = &out
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidates++
	c.order = nil
	return nil
}

type fixture struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	source    *repository.StaticCatalogRepository
	cache     *memoryCache
	publisher *events.MockEventPublisher
	catalog   *CatalogService
	sessions  *SessionService
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	order, err := cfg.Catalog.Order()
	require.NoError(t, err)

	f := &fixture{
		cfg:       cfg,
		metrics:   metrics.New(),
		source:    repository.NewStaticCatalogRepository(order),
		cache:     &memoryCache{},
		publisher: events.NewMockEventPublisher(),
	}
	f.catalog = NewCatalogService(f.source, f.cache, f.publisher, f.metrics, cfg, logging.NewNop())
	f.sessions = NewSessionService(repository.NewMemorySessionStore(cfg.Session.TTL), f.catalog, f.metrics, logging.NewNop())
	return f
}

func (f *fixture) loads(source string) float64 {
	return testutil.ToFloat64(f.metrics.CatalogLoads.WithLabelValues(source))
}

func TestCatalogService_Layers(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Features.EnableCatalogCache = true
	})
	ctx := context.Background()

	order, err := f.catalog.Current(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 9200, order.Subtotal)
	assert.Equal(t, 1.0, f.loads(config.CatalogSourceStatic))
	require.NotNil(t, f.cache.order)

	_, err = f.catalog.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.loads("local"))

	// A second replica starts with an empty snapshot and hits the shared cache.
	other := NewCatalogService(f.source, f.cache, nil, f.metrics, f.cfg, logging.NewNop())
	_, err = other.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.loads("cache"))
	assert.Equal(t, 1.0, f.loads(config.CatalogSourceStatic))
}

func TestCatalogService_LocalSnapshotExpires(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.catalog.now = func() time.Time { return now }

	_, err := f.catalog.Current(ctx)
	require.NoError(t, err)
	_, err = f.catalog.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.loads(config.CatalogSourceStatic))

	now = now.Add(f.cfg.Catalog.LocalTTL)
	_, err = f.catalog.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f.loads(config.CatalogSourceStatic))
}

func TestCatalogService_CacheDisabledByFlag(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.catalog.Current(context.Background())
	require.NoError(t, err)
	assert.Zero(t, f.cache.gets)
	assert.Nil(t, f.cache.order)
}

func TestCatalogService_CacheErrorFallsBackToSource(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Features.EnableCatalogCache = true
		c.Catalog.LocalTTL = 0
	})
	f.cache.err = stderrors.New("redis down")

	order, err := f.catalog.Current(context.Background())
	require.NoError(t, err)
	assert.Len(t, order.PromoCodes, 3)
	assert.Equal(t, 1.0, f.loads(config.CatalogSourceStatic))
}

func TestCatalogService_UpsertPromoCode(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Features.EnableCatalogCache = true
		c.Features.EnableCatalogEvents = true
	})
	ctx := context.Background()

	_, err := f.catalog.Current(ctx)
	require.NoError(t, err)

	code, err := f.catalog.UpsertPromoCode(ctx, " spring ", 150)
	require.NoError(t, err)
	assert.Equal(t, "SPRING", code)
	assert.Equal(t, 1, f.cache.invalidates)

	require.Len(t, f.publisher.Events, 1)
	assert.Equal(t, events.EventTypePromoCodeUpserted, f.publisher.Events[0].Type)
	assert.Equal(t, "SPRING", f.publisher.Events[0].Code)

	order, err := f.catalog.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, pricing.Amount(150), order.PromoCodes["SPRING"])
}

func TestCatalogService_UpsertValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		code     string
		discount int64
		field    string
	}{
		{"blank code", "  ", 100, "code"},
		{"bad characters", "HALF OFF", 100, "code"},
		{"too long", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", 100, "code"},
		{"zero discount", "SPRING", 0, "discount"},
		{"negative discount", "SPRING", -5, "discount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.UpsertPromoCode(ctx, tt.code, tt.discount)
			verr, ok := errors.IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Empty(t, f.publisher.Events)
}

func TestCatalogService_DeletePromoCode(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Features.EnableCatalogEvents = true
	})
	ctx := context.Background()

	require.NoError(t, f.catalog.DeletePromoCode(ctx, "welcome"))
	assert.ErrorIs(t, f.catalog.DeletePromoCode(ctx, "WELCOME"), errors.ErrNotFound)

	require.Len(t, f.publisher.Events, 1)
	assert.Equal(t, events.EventTypePromoCodeDeleted, f.publisher.Events[0].Type)

	order, err := f.catalog.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CHUKS10", "NIGERIA2024"}, order.Codes())
}

func TestCatalogService_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Features.EnableCatalogEvents = true
	})
	f.publisher.Err = stderrors.New("broker down")

	_, err := f.catalog.UpsertPromoCode(context.Background(), "SPRING", 150)
	require.NoError(t, err)

	order, err := f.source.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, order.PromoCodes, "SPRING")
}

func TestSessionService_Flow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	session, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, pricing.Delivery, session.State.Mode)
	assert.Equal(t, pricing.Amount(9900), session.Engine().ComputeTotal())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsCreated))

	session, feedback, err := f.sessions.ApplyPromoCode(ctx, session.ID, "chuks10")
	require.NoError(t, err)
	assert.Equal(t, pricing.FeedbackSuccess, feedback.Status)
	assert.Equal(t, "Promo code applied! You saved ₦500.", feedback.Message)
	assert.Equal(t, pricing.Amount(9400), session.Engine().ComputeTotal())

	session, err = f.sessions.SetFulfillmentMode(ctx, session.ID, "pickup")
	require.NoError(t, err)
	assert.Equal(t, pricing.Amount(8900), session.Engine().ComputeTotal())
	assert.Equal(t, pricing.Amount(500), session.State.AppliedDiscount)

	_, feedback, err = f.sessions.ApplyPromoCode(ctx, session.ID, "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, pricing.FeedbackError, feedback.Status)
	assert.Equal(t, "A promo code has already been applied to this order.", feedback.Message)

	summary, err := f.sessions.Checkout(ctx, session.ID, "  Extra pepper  ")
	require.NoError(t, err)
	assert.Equal(t, "Pick up", summary.Mode)
	assert.Equal(t, "₦8,900", summary.Total)
	assert.Equal(t, "Extra pepper", summary.Instructions)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PromoAttempts.WithLabelValues(promoResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PromoAttempts.WithLabelValues(promoResultAlreadyApplied)))
	assert.Equal(t, 500.0, testutil.ToFloat64(f.metrics.PromoSavings))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues("pickup")))

	require.NoError(t, f.sessions.End(ctx, session.ID))
	_, err = f.sessions.Get(ctx, session.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsEnded))
}

func TestSessionService_RejectedCodesArePersisted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	session, err := f.sessions.Create(ctx)
	require.NoError(t, err)

	_, feedback, err := f.sessions.ApplyPromoCode(ctx, session.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, "Please enter a promo code.", feedback.Message)

	session, feedback, err = f.sessions.ApplyPromoCode(ctx, session.ID, "BOGUS")
	require.NoError(t, err)
	assert.Equal(t, "Invalid promo code. Please try again.", feedback.Message)
	assert.False(t, session.Engine().PromoLocked())

	// Still unlocked, so a valid code works afterwards.
	_, feedback, err = f.sessions.ApplyPromoCode(ctx, session.ID, "NIGERIA2024")
	require.NoError(t, err)
	assert.Equal(t, pricing.FeedbackSuccess, feedback.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PromoAttempts.WithLabelValues(promoResultEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PromoAttempts.WithLabelValues(promoResultInvalid)))
}

func TestSessionService_BadMode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	session, err := f.sessions.Create(ctx)
	require.NoError(t, err)

	_, err = f.sessions.SetFulfillmentMode(ctx, session.ID, "drone")
	verr, ok := errors.IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "mode", verr.Field)
}

func TestSessionService_UnknownSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.sessions.SetFulfillmentMode(ctx, "missing", "pickup")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, _, err = f.sessions.ApplyPromoCode(ctx, "missing", "CHUKS10")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = f.sessions.Checkout(ctx, "missing", "")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.ErrorIs(t, f.sessions.End(ctx, "missing"), errors.ErrNotFound)
}

func TestSessionService_SnapshotIsolatesCatalogChanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	before, err := f.sessions.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeletePromoCode(ctx, "CHUKS10"))
	_, err = f.catalog.UpsertPromoCode(ctx, "SPRING", 150)
	require.NoError(t, err)

	_, feedback, err := f.sessions.ApplyPromoCode(ctx, before.ID, "CHUKS10")
	require.NoError(t, err)
	assert.Equal(t, pricing.FeedbackSuccess, feedback.Status)

	after, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	_, feedback, err = f.sessions.ApplyPromoCode(ctx, after.ID, "CHUKS10")
	require.NoError(t, err)
	assert.Equal(t, pricing.FeedbackError, feedback.Status)
	_, feedback, err = f.sessions.ApplyPromoCode(ctx, after.ID, "spring")
	require.NoError(t, err)
	assert.Equal(t, pricing.FeedbackSuccess, feedback.Status)
}

func TestSessionService_SessionsAreIndependent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	b, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, _, err = f.sessions.ApplyPromoCode(ctx, a.ID, "CHUKS10")
	require.NoError(t, err)
	_, _, err = f.sessions.ApplyPromoCode(ctx, b.ID, "WELCOME")
	require.NoError(t, err)

	a, err = f.sessions.Get(ctx, a.ID)
	require.NoError(t, err)
	b, err = f.sessions.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.Amount(500), a.State.AppliedDiscount)
	assert.Equal(t, pricing.Amount(200), b.State.AppliedDiscount)
}

func TestSanitizeInstructions(t *testing.T) {
	assert.Equal(t, "Ring the bell", SanitizeInstructions("  Ring the bell\n"))

	long := make([]rune, maxInstructionsLength+10)
	for i := range long {
		long[i] = 'ẹ'
	}
	assert.Len(t, []rune(SanitizeInstructions(string(long))), maxInstructionsLength)
}

func TestSanitizeInstructions_CutInsideWhitespace(t *testing.T) {
	input := strings.Repeat("a", maxInstructionsLength-2) + "     leave at the gate"

	got := SanitizeInstructions(input)

	assert.Equal(t, strings.Repeat("a", maxInstructionsLength-2), got)
	assert.Equal(t, strings.TrimSpace(got), got)
}
