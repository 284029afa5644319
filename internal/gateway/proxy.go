package gateway

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
)

// proxyTargets maps each public API prefix to the service that owns it.
var proxyTargets = map[string]string{
	"/api/auth":  "user-service",
	"/api/users": "user-service",
	"/api/items": "item-service",
	"/api/lists": "list-service",
}

// registerProxyRoutes wires the passthrough routes. Echo's wildcard does
// not match the bare prefix, so both forms are registered.
func (s *Server) registerProxyRoutes(e *echo.Echo) {
	for prefix, target := range proxyTargets {
		h := s.proxyTo(target)
		e.Any(prefix, h)
		e.Any(prefix+"/*", h)
	}
}

// proxyTo forwards the request through the dispatcher and relays the
// downstream response verbatim, status code included.
func (s *Server) proxyTo(target string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		var body []byte
		if req.Body != nil {
			b, err := io.ReadAll(req.Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest,
					errorResponse(http.StatusBadRequest, "reading request body failed"))
			}
			body = b
		}

		res, err := s.dispatcher.Dispatch(req.Context(), target, &dispatch.Request{
			Method:   req.Method,
			Path:     req.URL.Path,
			RawQuery: req.URL.RawQuery,
			Body:     body,
			Header:   req.Header,
		})
		if err != nil {
			if dispatch.IsUnavailable(err) {
				s.logger.Warn("proxy target unavailable",
					zap.String("target", target), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"error":   "service unavailable, try again later",
					"service": target,
				})
			}
			s.logger.Error("proxy dispatch failed",
				zap.String("target", target), zap.Error(err))
			return c.JSON(http.StatusBadGateway,
				errorResponse(http.StatusBadGateway, "upstream call failed"))
		}

		contentType := res.ContentType
		if contentType == "" {
			contentType = echo.MIMEApplicationJSON
		}
		return c.Blob(res.StatusCode, contentType, res.Body)
	}
}
