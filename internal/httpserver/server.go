package httpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
)

// Server wraps an echo instance with the middleware stack and lifecycle
// every process in the system shares.
type Server struct {
	e      *echo.Echo
	name   string
	host   string
	port   int
	logger config.Logger
}

// New creates a server for the named process.
func New(name, host string, port int, logger config.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	return &Server{
		e:      e,
		name:   name,
		host:   host,
		port:   port,
		logger: logger,
	}
}

// Echo exposes the router for route registration.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

// Start launches the listener in the background.
func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("http server starting",
		zap.String("server", s.name),
		zap.String("addr", addr))

	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("http server failed",
				zap.String("server", s.name), zap.Error(err))
		}
	}()
}

// Shutdown drains the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping", zap.String("server", s.name))
	return s.e.Shutdown(ctx)
}
