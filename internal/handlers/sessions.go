package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/models"
)

// CreateSession handles POST /api/v1/sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	session, err := h.sessionService.Create(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewView(session))
}

// GetSession handles GET /api/v1/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	session, err := h.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewView(session))
}

// SetFulfillmentMode handles PUT /api/v1/sessions/:id/fulfillment
func (h *Handlers) SetFulfillmentMode(c *gin.Context) {
	var req models.FulfillmentRequest
	if !h.bind(c, &req) {
		return
	}

	session, err := h.sessionService.SetFulfillmentMode(c.Request.Context(), c.Param("id"), req.Mode)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewView(session))
}

// ApplyPromoCode handles POST /api/v1/sessions/:id/promo
// A rejected code still answers 200; the feedback says why.
func (h *Handlers) ApplyPromoCode(c *gin.Context) {
	var req models.PromoCodeRequest
	if !h.bind(c, &req) {
		return
	}

	session, feedback, err := h.sessionService.ApplyPromoCode(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		handleError(c, err)
		return
	}

	view := models.NewView(session)
	view.Feedback = &feedback
	c.JSON(http.StatusOK, view)
}

// Checkout handles POST /api/v1/sessions/:id/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if !h.bindOptional(c, &req) {
		return
	}

	summary, err := h.sessionService.Checkout(c.Request.Context(), c.Param("id"), req.Instructions)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// EndSession handles DELETE /api/v1/sessions/:id
func (h *Handlers) EndSession(c *gin.Context) {
	if err := h.sessionService.End(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
