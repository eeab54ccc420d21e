package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/service"
)

// Handlers holds all HTTP handlers for the pricing service.
type Handlers struct {
	sessionService *service.SessionService
	catalogService *service.CatalogService
	metrics        *metrics.Metrics
	config         *config.Config
	logger         *logging.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	sessionService *service.SessionService,
	catalogService *service.CatalogService,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		sessionService: sessionService,
		catalogService: catalogService,
		metrics:        m,
		config:         cfg,
		logger:         logger.Named("handlers"),
	}
}

func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	return h.bindJSON(c, req, false)
}

// bindOptional accepts an empty body, sized or chunked, as the zero request.
func (h *Handlers) bindOptional(c *gin.Context, req interface{}) bool {
	return h.bindJSON(c, req, true)
}

func (h *Handlers) bindJSON(c *gin.Context, req interface{}, optional bool) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		h.logger.Debug("Failed to bind request", logging.Fields{
			"path":       c.FullPath(),
			"request_id": middleware.RequestIDFrom(c.Request.Context()),
			"error":      err,
		})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, errors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if errors.Is(err, errors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "conflicting update, please retry"})
		return
	}

	if validationErr, ok := errors.IsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
