package item

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

func newTestServer(t *testing.T) (*echo.Echo, *Repository) {
	t.Helper()

	coll, err := jsondb.Open(filepath.Join(t.TempDir(), "items.json"))
	require.NoError(t, err)

	repo := NewRepository(coll)
	require.NoError(t, repo.Seed())

	e := echo.New()
	NewHandler(repo, config.NewNopLogger()).RegisterRoutes(e)
	return e, repo
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeItems(t *testing.T, rec *httptest.ResponseRecorder) []*Item {
	t.Helper()
	var items []*Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	return items
}

func TestSeedIsIdempotent(t *testing.T) {
	_, repo := newTestServer(t)

	before := repo.coll.Count()
	require.NoError(t, repo.Seed())
	assert.Equal(t, before, repo.coll.Count())
}

func TestListCatalog(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/items")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeItems(t, rec), 16)
}

func TestListByCategory(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/items?category=dairy")
	require.Equal(t, http.StatusOK, rec.Code)

	items := decodeItems(t, rec)
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.Equal(t, "dairy", it.Category)
	}
}

func TestListByNameQuery(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/items?q=milk")
	require.Equal(t, http.StatusOK, rec.Code)

	items := decodeItems(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "Whole Milk", items[0].Name)
}

func TestListNoMatchesReturnsEmptyArray(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/items?q=zzzznothing")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCategories(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/items/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var categories []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	assert.Contains(t, categories, "dairy")
	assert.Contains(t, categories, "produce")
}

func TestGetItem(t *testing.T) {
	e, repo := newTestServer(t)

	all, err := repo.Find(Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, all)

	rec := get(e, "/api/items/"+all[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var it Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))
	assert.Equal(t, all[0].Name, it.Name)
}

func TestGetItemNotFound(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/items/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateItem(t *testing.T) {
	e, _ := newTestServer(t)

	body := `{"name":"Oat Milk","category":"dairy","unit":"litro","average_price":12.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var it Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))
	assert.NotEmpty(t, it.ID)
	assert.True(t, it.Active)

	listed := get(e, "/api/items?q=oat")
	assert.Len(t, decodeItems(t, listed), 1)
}

func TestCreateItemInvalid(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/items",
		strings.NewReader(`{"name":"","category":"","unit":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
