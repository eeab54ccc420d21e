package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/middleware"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	handlers   *handlers.Handlers
	httpServer *http.Server
	logger     *logging.Logger
}

func New(h *handlers.Handlers, cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger.Named("http")))
	if cfg.Features.EnableMetrics {
		router.Use(middleware.Metrics(m))
	}

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		logger:   logger,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	if s.config.Features.EnableMetrics {
		s.router.GET("/metrics", s.handlers.Metrics)
	}
	if s.config.Features.EnableDebug {
		s.router.GET("/debug", s.handlers.Debug)
	}

	v1 := s.router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		sessions.POST("", s.handlers.CreateSession)
		sessions.GET("/:id", s.handlers.GetSession)
		sessions.PUT("/:id/fulfillment", s.handlers.SetFulfillmentMode)
		sessions.POST("/:id/promo", s.handlers.ApplyPromoCode)
		sessions.POST("/:id/checkout", s.handlers.Checkout)
		sessions.DELETE("/:id", s.handlers.EndSession)

		if s.config.Features.EnableAdminAPI {
			admin := v1.Group("/admin")
			admin.GET("/catalog", s.handlers.GetCatalog)
			admin.PUT("/promo-codes/:code", s.handlers.UpsertPromoCode)
			admin.DELETE("/promo-codes/:code", s.handlers.DeletePromoCode)
		}
	}
}

// Router exposes the gin engine, mostly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
