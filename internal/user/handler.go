package user

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/auth"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration payload.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(2, 64)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(4, 128)),
	)
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PublicUser is the account view without credentials.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// Handler serves the account and token endpoints.
type Handler struct {
	repo    *Repository
	tokens  *auth.Manager
	checker auth.TokenChecker
	logger  config.Logger
}

// NewHandler creates the user handler.
func NewHandler(repo *Repository, tokens *auth.Manager, logger config.Logger) *Handler {
	return &Handler{
		repo:    repo,
		tokens:  tokens,
		checker: auth.NewLocalChecker(tokens),
		logger:  logger,
	}
}

// RegisterRoutes wires the handler into the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)

	api := e.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.GET("/auth/validate", h.validate)
	api.GET("/users/:id", h.getUser, auth.Middleware(h.checker))
}

// health answers the monitor's probe.
func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, model.HealthPayload{Service: "user-service", Status: "ok"})
}

// register creates an account.
func (h *Handler) register(c echo.Context) error {
	req := new(RegisterRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hashing password failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create account"})
	}

	u, err := h.repo.Create(req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "username already taken"})
		}
		h.logger.Error("creating user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create account"})
	}

	h.logger.Info("user registered", zap.String("username", u.Username))
	return c.JSON(http.StatusCreated, PublicUser{ID: u.ID, Username: u.Username, Email: u.Email})
}

// login verifies credentials and issues a token.
func (h *Handler) login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	u, err := h.repo.GetByUsername(req.Username)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	token, err := h.tokens.IssueToken(u.ID, u.Username)
	if err != nil {
		h.logger.Error("issuing token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not issue token"})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  PublicUser{ID: u.ID, Username: u.Username, Email: u.Email},
	})
}

// validate answers the delegated token checks other services make through
// the dispatcher.
func (h *Handler) validate(c echo.Context) error {
	token, ok := auth.BearerToken(c.Request())
	if !ok {
		return c.JSON(http.StatusUnauthorized, auth.ValidateResponse{Valid: false})
	}

	identity, err := h.checker.Check(c.Request().Context(), token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, auth.ValidateResponse{Valid: false})
	}
	return c.JSON(http.StatusOK, auth.ValidateResponse{Valid: true, User: identity})
}

// getUser returns one account. Callers may only read themselves.
func (h *Handler) getUser(c echo.Context) error {
	identity := auth.IdentityFrom(c)
	id := c.Param("id")
	if identity == nil || identity.UserID != id {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "cannot read another user"})
	}

	u, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, jsondb.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not read user"})
	}
	return c.JSON(http.StatusOK, PublicUser{ID: u.ID, Username: u.Username, Email: u.Email})
}
