package item

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

// CreateRequest is the catalog creation payload.
type CreateRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Brand        string  `json:"brand"`
	Unit         string  `json:"unit"`
	AveragePrice float64 `json:"average_price"`
}

// Validate checks the creation payload.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 128)),
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.Unit, validation.Required),
		validation.Field(&r.AveragePrice, validation.Min(0.0)),
	)
}

// Handler serves the catalog endpoints. The catalog is public; composite
// reads hit it without forwarding any credential.
type Handler struct {
	repo   *Repository
	logger config.Logger
}

// NewHandler creates the item handler.
func NewHandler(repo *Repository, logger config.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes wires the handler into the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)

	api := e.Group("/api")
	api.GET("/items", h.list)
	api.GET("/items/categories", h.categories)
	api.GET("/items/:id", h.get)
	api.POST("/items", h.create)
}

// health answers the monitor's probe.
func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, model.HealthPayload{Service: "item-service", Status: "ok"})
}

// list returns the catalog, optionally filtered by category or name query.
func (h *Handler) list(c echo.Context) error {
	items, err := h.repo.Find(Filter{
		Category: c.QueryParam("category"),
		Query:    c.QueryParam("q"),
	})
	if err != nil {
		h.logger.Error("listing items failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list items"})
	}
	if items == nil {
		items = []*Item{}
	}
	return c.JSON(http.StatusOK, items)
}

// categories returns the distinct catalog categories.
func (h *Handler) categories(c echo.Context) error {
	categories, err := h.repo.Categories()
	if err != nil {
		h.logger.Error("listing categories failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list categories"})
	}
	if categories == nil {
		categories = []string{}
	}
	return c.JSON(http.StatusOK, categories)
}

// get returns one catalog item.
func (h *Handler) get(c echo.Context) error {
	it, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, jsondb.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not read item"})
	}
	return c.JSON(http.StatusOK, it)
}

// create adds a catalog item.
func (h *Handler) create(c echo.Context) error {
	req := new(CreateRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	it, err := h.repo.Create(&Item{
		Name:         req.Name,
		Category:     req.Category,
		Brand:        req.Brand,
		Unit:         req.Unit,
		AveragePrice: req.AveragePrice,
	})
	if err != nil {
		h.logger.Error("creating item failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create item"})
	}

	h.logger.Info("item created", zap.String("name", it.Name))
	return c.JSON(http.StatusCreated, it)
}
