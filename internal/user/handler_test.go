package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/auth"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	coll, err := jsondb.Open(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	h := NewHandler(NewRepository(coll), auth.NewManager("test-secret", time.Hour), config.NewNopLogger())
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func registerAlice(t *testing.T, e *echo.Echo) PublicUser {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var u PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u
}

func loginAlice(t *testing.T, e *echo.Echo) LoginResponse {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-service")
}

func TestRegisterAccount(t *testing.T) {
	e := newTestServer(t)

	u := registerAlice(t, e)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e := newTestServer(t)
	registerAlice(t, e)

	rec := doJSON(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"other@example.com","password":"different"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterInvalidPayload(t *testing.T) {
	e := newTestServer(t)

	for name, body := range map[string]string{
		"missing username": `{"email":"a@example.com","password":"hunter22"}`,
		"bad email":        `{"username":"alice","email":"nope","password":"hunter22"}`,
		"short password":   `{"username":"alice","email":"a@example.com","password":"x"}`,
	} {
		rec := doJSON(e, http.MethodPost, "/api/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestLogin(t *testing.T) {
	e := newTestServer(t)
	registerAlice(t, e)

	resp := loginAlice(t, e)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestServer(t)
	registerAlice(t, e)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"nobody","password":"hunter22"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	e := newTestServer(t)
	registerAlice(t, e)
	resp := loginAlice(t, e)

	rec := doJSON(e, http.MethodGet, "/api/auth/validate", "", resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	var validated auth.ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validated))
	assert.True(t, validated.Valid)
	require.NotNil(t, validated.User)
	assert.Equal(t, "alice", validated.User.Username)
}

func TestValidateRejectsBadToken(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/auth/validate", "", "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var validated auth.ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validated))
	assert.False(t, validated.Valid)
}

func TestGetUserSelfOnly(t *testing.T) {
	e := newTestServer(t)
	u := registerAlice(t, e)
	resp := loginAlice(t, e)

	rec := doJSON(e, http.MethodGet, "/api/users/"+u.ID, "", resp.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/users/someone-else", "", resp.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/users/"+u.ID, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
