package gateway

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/auth"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/httpserver"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/metrics"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/registry"
)

// Server is the API gateway: it owns the registry's HTTP surface, proxies
// /api/* to the business services through the dispatcher, and serves the
// composite endpoints.
type Server struct {
	srv        *httpserver.Server
	store      registry.Store
	dispatcher *dispatch.Dispatcher
	aggregator *dispatch.Aggregator
	metrics    *metrics.Metrics
	checker    auth.TokenChecker
	logger     config.Logger
}

// NewServer wires the gateway routes.
func NewServer(cfg *config.Config, store registry.Store, dispatcher *dispatch.Dispatcher, m *metrics.Metrics, logger config.Logger) *Server {
	s := &Server{
		srv:        httpserver.New("api-gateway", cfg.Gateway.ListenAddress, cfg.Gateway.Port, logger),
		store:      store,
		dispatcher: dispatcher,
		aggregator: dispatch.NewAggregator(dispatcher),
		metrics:    m,
		checker:    auth.NewRemoteChecker(dispatcher, "user-service"),
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

// registerRoutes builds the full route table.
func (s *Server) registerRoutes() {
	e := s.srv.Echo()

	// Registry surface used by the services' SDK.
	e.POST("/registry/register", s.registerService)
	e.DELETE("/registry/:name", s.deregisterService)
	e.PUT("/registry/heartbeat/:name", s.heartbeat)

	// Operator introspection.
	e.GET("/registry", s.listServices)
	e.GET("/health", s.health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	// Composite reads.
	e.GET("/api/dashboard", s.dashboard, auth.Middleware(s.checker))
	e.GET("/api/search", s.search)

	// Passthrough proxying to the business services.
	s.registerProxyRoutes(e)
}

// health reports the gateway itself plus the summarized registry view.
func (s *Server) health(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service":  "api-gateway",
		"status":   "ok",
		"services": s.store.GetStats(ctx),
		"breakers": s.dispatcher.Breakers().Stats(),
	})
}

// listServices exposes the registry verbatim.
func (s *Server) listServices(c echo.Context) error {
	records := s.store.ListServices(c.Request().Context())
	return c.JSON(http.StatusOK, model.ApiResponse{
		Code:    http.StatusOK,
		Message: "registered services",
		Data:    records,
	})
}

// Start launches the HTTP listener.
func (s *Server) Start() {
	s.srv.Start()
}

// Shutdown drains the gateway.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
