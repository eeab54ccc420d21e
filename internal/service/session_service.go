package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/repository"
)

// CatalogReader supplies the catalog a new session is priced against.
type CatalogReader interface {
	Current(ctx context.Context) (pricing.Order, error)
}

// Promo attempt outcomes as recorded in metrics.
const (
	promoResultAccepted       = "accepted"
	promoResultEmpty          = "empty"
	promoResultInvalid        = "invalid"
	promoResultAlreadyApplied = "already_applied"
)

// SessionService drives the order-summary page for one customer at a time.
type SessionService struct {
	store   repository.SessionStore
	catalog CatalogReader
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(store repository.SessionStore, catalog CatalogReader, m *metrics.Metrics, logger *logging.Logger) *SessionService {
	return &SessionService{
		store:   store,
		catalog: catalog,
		metrics: m,
		logger:  logger.Named("session-service"),
		now:     time.Now,
	}
}

// Create starts a session in delivery mode with no discount, priced against
// the catalog as it is now.
func (s *SessionService) Create(ctx context.Context) (*models.Session, error) {
	order, err := s.catalog.Current(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		Order:     order,
		State:     pricing.NewEngine(order).State(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, session); err != nil {
		s.logger.Error("Failed to create session", logging.Fields{"error": err})
		return nil, err
	}

	s.metrics.SessionsCreated.Inc()
	s.logger.Info("Session created", logging.Fields{
		"session_id": session.ID,
		"codes":      len(order.PromoCodes),
	})

	return session, nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	s.logger.Debug("Getting session", logging.Fields{"session_id": id})
	return s.store.Get(ctx, id)
}

// SetFulfillmentMode switches between delivery and pickup. Any applied
// discount is kept.
func (s *SessionService) SetFulfillmentMode(ctx context.Context, id string, rawMode string) (*models.Session, error) {
	mode, err := ParseMode(rawMode)
	if err != nil {
		return nil, err
	}

	session, err := s.store.Update(ctx, id, func(session *models.Session) error {
		e := session.Engine()
		e.SetFulfillmentMode(mode)
		session.State = e.State()
		session.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ModeChanges.WithLabelValues(mode.String()).Inc()
	s.logger.Debug("Fulfillment mode set", logging.Fields{
		"session_id": id,
		"mode":       mode.String(),
	})

	return session, nil
}

// ApplyPromoCode tries to redeem code for the session. A rejected code is
// not an error here: the feedback carries the message for the customer and
// the session is returned as it now stands. Errors are reserved for missing
// sessions and store failures.
func (s *SessionService) ApplyPromoCode(ctx context.Context, id string, code string) (*models.Session, pricing.Feedback, error) {
	var (
		feedback pricing.Feedback
		applyErr error
	)

	session, err := s.store.Update(ctx, id, func(session *models.Session) error {
		e := session.Engine()
		feedback, applyErr = e.ApplyPromoCode(code)
		session.State = e.State()
		session.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, pricing.Feedback{}, err
	}

	result := promoResult(applyErr)
	s.metrics.PromoAttempts.WithLabelValues(result).Inc()

	if applyErr != nil {
		s.logger.Debug("Promo code rejected", logging.Fields{
			"session_id": id,
			"result":     result,
		})
		return session, feedback, nil
	}

	s.metrics.PromoSavings.Add(float64(feedback.Saved))
	s.logger.Info("Promo code applied", logging.Fields{
		"session_id": id,
		"code":       session.State.AppliedCode,
		"saved":      int64(feedback.Saved),
	})

	return session, feedback, nil
}

func promoResult(err error) string {
	switch {
	case err == nil:
		return promoResultAccepted
	case stderrors.Is(err, pricing.ErrEmptyCode):
		return promoResultEmpty
	case stderrors.Is(err, pricing.ErrAlreadyApplied):
		return promoResultAlreadyApplied
	default:
		return promoResultInvalid
	}
}

// Checkout produces the order summary. It leaves the session untouched;
// payment happens elsewhere.
func (s *SessionService) Checkout(ctx context.Context, id string, instructions string) (pricing.Summary, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return pricing.Summary{}, err
	}

	summary := session.Engine().Checkout(SanitizeInstructions(instructions))

	s.metrics.Checkouts.WithLabelValues(session.State.Mode.String()).Inc()
	s.logger.Info("Checkout summary produced", logging.Fields{
		"session_id":       id,
		"mode":             session.State.Mode.String(),
		"total":            summary.Total,
		"has_instructions": summary.Instructions != "",
	})

	return summary, nil
}

// End discards a session.
func (s *SessionService) End(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.metrics.SessionsEnded.Inc()
	s.logger.Debug("Session ended", logging.Fields{"session_id": id})
	return nil
}
