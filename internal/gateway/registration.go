package gateway

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/registry"
)

// validateRegistration checks the registration payload.
func validateRegistration(req *model.ServiceRegistrationRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.URL, validation.Required, is.URL),
	)
}

// errorResponse builds the error envelope.
func errorResponse(code int, message string) *model.ApiResponse {
	return &model.ApiResponse{Code: code, Message: message}
}

// successResponse builds the success envelope.
func successResponse(code int, message string, data interface{}) *model.ApiResponse {
	return &model.ApiResponse{Code: code, Message: message, Data: data}
}

// registerService handles a service announcing itself at startup.
func (s *Server) registerService(c echo.Context) error {
	req := new(model.ServiceRegistrationRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest,
			errorResponse(http.StatusBadRequest, "malformed registration payload: "+err.Error()))
	}
	if err := validateRegistration(req); err != nil {
		return c.JSON(http.StatusBadRequest,
			errorResponse(http.StatusBadRequest, "invalid registration payload: "+err.Error()))
	}

	rec, err := s.store.Register(c.Request().Context(), req.Name, req.URL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			errorResponse(http.StatusInternalServerError, "registration failed: "+err.Error()))
	}

	return c.JSON(http.StatusOK, successResponse(http.StatusOK, "service registered",
		model.ServiceRegistrationResponse{
			Name:         rec.Name,
			RegisteredAt: rec.RegisteredAt,
		}))
}

// deregisterService removes a record explicitly.
func (s *Server) deregisterService(c echo.Context) error {
	name := c.Param("name")

	if err := s.store.Deregister(c.Request().Context(), name); err != nil {
		if errors.Is(err, registry.ErrNotRegistered) {
			return c.JSON(http.StatusNotFound,
				errorResponse(http.StatusNotFound, "service not registered"))
		}
		return c.JSON(http.StatusInternalServerError,
			errorResponse(http.StatusInternalServerError, "deregistration failed: "+err.Error()))
	}

	return c.JSON(http.StatusOK, successResponse(http.StatusOK, "service deregistered", nil))
}

// heartbeat records a service's own liveness push. A heartbeat for an
// unknown name is answered with 404 so the sender knows to re-register,
// but it never mutates the registry.
func (s *Server) heartbeat(c echo.Context) error {
	name := c.Param("name")
	ctx := c.Request().Context()

	if _, err := s.store.Discover(ctx, name); err != nil {
		return c.JSON(http.StatusNotFound,
			errorResponse(http.StatusNotFound, "service not registered"))
	}

	s.store.UpdateHealth(ctx, name, true)

	rec, err := s.store.Discover(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			errorResponse(http.StatusInternalServerError, "heartbeat failed: "+err.Error()))
	}

	return c.JSON(http.StatusOK, successResponse(http.StatusOK, "heartbeat recorded",
		model.ServiceHeartbeatResponse{
			Name:            rec.Name,
			LastHealthCheck: rec.LastHealthCheck,
		}))
}
