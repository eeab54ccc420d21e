package models

import (
	"time"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

// Session is one customer's order-summary view: the catalog snapshot taken
// when it started plus the engine state.
type Session struct {
	ID        string        `json:"id"`
	Order     pricing.Order `json:"order"`
	State     pricing.State `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Engine rebuilds the pricing engine for the session.
func (s *Session) Engine() *pricing.Engine {
	return pricing.RestoreEngine(s.Order, s.State)
}

// View is the rendered state of a session returned by the API.
type View struct {
	SessionID string            `json:"session_id"`
	Mode      string            `json:"mode"`
	Prices    pricing.Breakdown `json:"prices"`
	Promo     PromoView         `json:"promo"`
	Feedback  *pricing.Feedback `json:"feedback,omitempty"`
}

type PromoView struct {
	Locked bool   `json:"locked"`
	Code   string `json:"code,omitempty"`
	Saved  string `json:"saved,omitempty"`
}

// NewView renders the session through its engine.
func NewView(s *Session) *View {
	e := s.Engine()
	v := &View{
		SessionID: s.ID,
		Mode:      e.Mode().String(),
		Prices:    e.Breakdown(),
		Promo: PromoView{
			Locked: e.PromoLocked(),
			Code:   s.State.AppliedCode,
		},
	}
	if e.PromoLocked() {
		v.Promo.Saved = pricing.FormatNaira(e.AppliedDiscount())
	}
	return v
}

type FulfillmentRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type PromoCodeRequest struct {
	Code string `json:"code"`
}

type CheckoutRequest struct {
	Instructions string `json:"instructions"`
}

type PromoCodeUpsertRequest struct {
	Discount int64 `json:"discount"`
}

// CatalogView is the admin rendering of the current catalog.
type CatalogView struct {
	Subtotal    pricing.Amount            `json:"subtotal"`
	DeliveryFee pricing.Amount            `json:"delivery_fee"`
	ServiceFee  pricing.Amount            `json:"service_fee"`
	Tax         pricing.Amount            `json:"tax"`
	PromoCodes  map[string]pricing.Amount `json:"promo_codes"`
}
