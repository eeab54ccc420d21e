package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
)

const (
	serviceName    = "pricing-service"
	serviceVersion = "1.0.0"
	readyTimeout   = 2 * time.Second
)

var startTime = time.Now()

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Ready handles GET /ready. The service is ready once the catalog can be
// loaded, which exercises the configured source and cache.
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if _, err := h.catalogService.Current(ctx); err != nil {
		h.logger.Warn("Readiness check failed", logging.Fields{"error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"service": serviceName,
			"reason":  "catalog unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": serviceName,
	})
}

// Live handles GET /live
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Metrics handles GET /metrics (Prometheus format)
func (h *Handlers) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    serviceVersion,
		"service":    serviceName,
		"go_version": runtime.Version(),
		"started_at": startTime.Format(time.RFC3339),
	})
}

// Debug handles GET /debug
func (h *Handlers) Debug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"features": gin.H{
			"enable_catalog_cache":  h.config.Features.EnableCatalogCache,
			"enable_catalog_events": h.config.Features.EnableCatalogEvents,
			"enable_admin_api":      h.config.Features.EnableAdminAPI,
			"enable_metrics":        h.config.Features.EnableMetrics,
			"auto_migrate":          h.config.Features.AutoMigrate,
		},
		"config": gin.H{
			"server_port":    h.config.Server.Port,
			"catalog_source": h.config.Catalog.Source,
			"session_store":  h.config.Session.Store,
			"session_ttl":    h.config.Session.TTL.String(),
			"database_host":  h.config.Database.Host,
			"redis_addr":     h.config.Redis.Addr(),
			"kafka_topic":    h.config.Kafka.CatalogTopic,
		},
		"runtime": gin.H{
			"uptime_seconds": time.Since(startTime).Seconds(),
			"goroutines":     runtime.NumGoroutine(),
		},
	})
}
