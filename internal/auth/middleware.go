package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
)

// ContextKey is the echo context key the authenticated identity is stored
// under.
const ContextKey = "auth.identity"

// Identity is the validated caller.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
}

// TokenChecker validates a bearer token. The user service checks locally;
// everyone else delegates through the dispatcher.
type TokenChecker interface {
	Check(ctx context.Context, token string) (*Identity, error)
}

// Middleware enforces a valid bearer token and stores the identity on the
// context. An identity-service outage surfaces as 503, not 401.
func Middleware(checker TokenChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request())
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "missing bearer token",
				})
			}

			identity, err := checker.Check(c.Request().Context(), token)
			if err != nil {
				if dispatch.IsUnavailable(err) {
					return c.JSON(http.StatusServiceUnavailable, map[string]string{
						"error": "authentication service unavailable, try again later",
					})
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid or expired token",
				})
			}

			c.Set(ContextKey, identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(c echo.Context) *Identity {
	identity, _ := c.Get(ContextKey).(*Identity)
	return identity
}

// BearerToken extracts the bearer token from a request.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// LocalChecker validates tokens with the in-process manager.
type LocalChecker struct {
	manager *Manager
}

// NewLocalChecker wraps a token manager.
func NewLocalChecker(manager *Manager) *LocalChecker {
	return &LocalChecker{manager: manager}
}

// Check validates the token locally.
func (c *LocalChecker) Check(ctx context.Context, token string) (*Identity, error) {
	claims, err := c.manager.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.Subject, Username: claims.Username}, nil
}
