package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/auth"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
)

// emptyArray is what a failed branch degrades to in composite responses.
var emptyArray = json.RawMessage("[]")

// branchValue returns the branch payload, or the empty placeholder when
// the branch failed. Partial failure never fails the composite read.
func (s *Server) branchValue(results map[string]dispatch.BranchResult, key string) json.RawMessage {
	res, ok := results[key]
	if !ok || !res.OK() {
		if res.Err != nil {
			s.logger.Warn("composite branch degraded",
				zap.String("branch", key), zap.Error(res.Err))
		}
		return emptyArray
	}
	return res.Value
}

// dashboard fans out to the list and item services and assembles a single
// view for the authenticated caller.
func (s *Server) dashboard(c echo.Context) error {
	identity := auth.IdentityFrom(c)
	authorization := c.Request().Header.Get("Authorization")

	results := s.aggregator.Fetch(c.Request().Context(), []dispatch.Branch{
		{Key: "lists", Target: "list-service", Method: http.MethodGet, Path: "/api/lists", ForwardAuth: true},
		{Key: "items", Target: "item-service", Method: http.MethodGet, Path: "/api/items"},
	}, authorization)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":  identity,
		"lists": s.branchValue(results, "lists"),
		"items": s.branchValue(results, "items"),
	})
}

// search queries the catalog and, when the caller carries a token, their
// lists in parallel. Anonymous callers only get catalog results.
func (s *Server) search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest,
			errorResponse(http.StatusBadRequest, "query parameter q is required"))
	}

	rawQuery := "q=" + url.QueryEscape(query)
	branches := []dispatch.Branch{
		{Key: "items", Target: "item-service", Method: http.MethodGet, Path: "/api/items", RawQuery: rawQuery},
	}

	authorization := c.Request().Header.Get("Authorization")
	if authorization != "" {
		branches = append(branches, dispatch.Branch{
			Key: "lists", Target: "list-service", Method: http.MethodGet,
			Path: "/api/lists", RawQuery: rawQuery, ForwardAuth: true,
		})
	}

	results := s.aggregator.Fetch(c.Request().Context(), branches, authorization)

	response := map[string]interface{}{
		"query": query,
		"items": s.branchValue(results, "items"),
	}
	if authorization != "" {
		response["lists"] = s.branchValue(results, "lists")
	}
	return c.JSON(http.StatusOK, response)
}
