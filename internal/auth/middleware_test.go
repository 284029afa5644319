package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
)

// failingChecker simulates the identity service being unreachable.
type failingChecker struct{ err error }

func (c *failingChecker) Check(ctx context.Context, token string) (*Identity, error) {
	return nil, c.err
}

func runProtected(t *testing.T, checker TokenChecker, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		identity := IdentityFrom(c)
		require.NotNil(t, identity)
		return c.JSON(http.StatusOK, identity)
	}, Middleware(checker))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAllowsValidToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, err := m.IssueToken("user-1", "alice")
	require.NoError(t, err)

	rec := runProtected(t, NewLocalChecker(m), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestMiddlewareMissingToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	rec := runProtected(t, NewLocalChecker(m), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareInvalidToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	rec := runProtected(t, NewLocalChecker(m), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareIdentityServiceDown(t *testing.T) {
	checker := &failingChecker{err: &dispatch.UnavailableError{
		Service: "user-service",
		Reason:  dispatch.ErrCircuitOpen,
	}}

	// An auth outage is a 503, not a 401: the token might be fine.
	rec := runProtected(t, checker, "Bearer sometoken")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := BearerToken(req)
	assert.False(t, ok)

	req.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwdw==")
	_, ok = BearerToken(req)
	assert.False(t, ok)

	req.Header.Set(echo.HeaderAuthorization, "Bearer abc.def.ghi")
	token, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)

	// Scheme matching is case-insensitive.
	req.Header.Set(echo.HeaderAuthorization, "bearer abc.def.ghi")
	_, ok = BearerToken(req)
	assert.True(t, ok)
}
