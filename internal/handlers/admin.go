package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/models"
)

// UpsertPromoCode handles PUT /api/v1/admin/promo-codes/:code
func (h *Handlers) UpsertPromoCode(c *gin.Context) {
	var req models.PromoCodeUpsertRequest
	if !h.bind(c, &req) {
		return
	}

	code, err := h.catalogService.UpsertPromoCode(c.Request.Context(), c.Param("code"), req.Discount)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     code,
		"discount": req.Discount,
	})
}

// DeletePromoCode handles DELETE /api/v1/admin/promo-codes/:code
func (h *Handlers) DeletePromoCode(c *gin.Context) {
	if err := h.catalogService.DeletePromoCode(c.Request.Context(), c.Param("code")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetCatalog handles GET /api/v1/admin/catalog
func (h *Handlers) GetCatalog(c *gin.Context) {
	order, err := h.catalogService.Current(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CatalogView{
		Subtotal:    order.Subtotal,
		DeliveryFee: order.DeliveryFee,
		ServiceFee:  order.ServiceFee,
		Tax:         order.Tax,
		PromoCodes:  order.PromoCodes,
	})
}
