package list

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/auth"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

// CreateRequest is the list creation payload.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate checks the creation payload.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
	)
}

// AddItemRequest adds a catalog item to a list.
type AddItemRequest struct {
	ItemID   string  `json:"item_id"`
	Quantity float64 `json:"quantity"`
}

// Validate checks the add-item payload.
func (r AddItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ItemID, validation.Required),
		validation.Field(&r.Quantity, validation.Required, validation.Min(0.01)),
	)
}

// UpdateItemRequest mutates one list entry.
type UpdateItemRequest struct {
	Quantity  *float64 `json:"quantity,omitempty"`
	Purchased *bool    `json:"purchased,omitempty"`
}

// Handler serves the shopping list endpoints. Every route requires a valid
// token, checked against the user service through the dispatcher.
type Handler struct {
	repo    *Repository
	items   *ItemClient
	checker auth.TokenChecker
	logger  config.Logger
}

// NewHandler creates the list handler.
func NewHandler(repo *Repository, items *ItemClient, checker auth.TokenChecker, logger config.Logger) *Handler {
	return &Handler{repo: repo, items: items, checker: checker, logger: logger}
}

// RegisterRoutes wires the handler into the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)

	api := e.Group("/api/lists", auth.Middleware(h.checker))
	api.POST("", h.create)
	api.GET("", h.list)
	api.GET("/:id", h.get)
	api.DELETE("/:id", h.delete)
	api.GET("/:id/summary", h.summary)
	api.POST("/:id/items", h.addItem)
	api.PUT("/:id/items/:itemId", h.updateItem)
	api.DELETE("/:id/items/:itemId", h.removeItem)
}

// health answers the monitor's probe.
func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, model.HealthPayload{Service: "list-service", Status: "ok"})
}

// ownedList loads the list and enforces ownership.
func (h *Handler) ownedList(c echo.Context) (*ShoppingList, error) {
	identity := auth.IdentityFrom(c)
	l, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, jsondb.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "list not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "could not read list")
	}
	if identity == nil || l.UserID != identity.UserID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not your list")
	}
	return l, nil
}

// create stores a new list for the caller.
func (h *Handler) create(c echo.Context) error {
	req := new(CreateRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	identity := auth.IdentityFrom(c)
	l, err := h.repo.Create(identity.UserID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("creating list failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create list"})
	}

	h.logger.Info("list created",
		zap.String("list", l.ID), zap.String("user", identity.UserID))
	return c.JSON(http.StatusCreated, l)
}

// list returns the caller's lists, optionally filtered by name.
func (h *Handler) list(c echo.Context) error {
	identity := auth.IdentityFrom(c)
	lists, err := h.repo.FindByUser(identity.UserID, c.QueryParam("q"))
	if err != nil {
		h.logger.Error("listing lists failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list"})
	}
	if lists == nil {
		lists = []*ShoppingList{}
	}
	return c.JSON(http.StatusOK, lists)
}

// get returns one list.
func (h *Handler) get(c echo.Context) error {
	l, err := h.ownedList(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// delete removes a list.
func (h *Handler) delete(c echo.Context) error {
	l, err := h.ownedList(c)
	if err != nil {
		return err
	}
	if err := h.repo.Delete(l.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not delete list"})
	}
	return c.NoContent(http.StatusNoContent)
}

// summary returns the aggregate view of one list.
func (h *Handler) summary(c echo.Context) error {
	l, err := h.ownedList(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l.Summary)
}

// addItem enriches the entry from the catalog and appends it. A catalog
// outage surfaces as 503 naming the item service.
func (h *Handler) addItem(c echo.Context) error {
	l, err := h.ownedList(c)
	if err != nil {
		return err
	}

	req := new(AddItemRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	catalogItem, err := h.items.GetItem(c.Request().Context(), req.ItemID)
	if err != nil {
		if errors.Is(err, jsondb.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "item not found in catalog"})
		}
		if dispatch.IsUnavailable(err) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "item-service unavailable, try again later",
			})
		}
		h.logger.Error("catalog lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not add item"})
	}

	for _, existing := range l.Items {
		if existing.ItemID == catalogItem.ID {
			return c.JSON(http.StatusConflict, map[string]string{"error": "item already on the list"})
		}
	}

	l.Items = append(l.Items, ListItem{
		ItemID:         catalogItem.ID,
		ItemName:       catalogItem.Name,
		Unit:           catalogItem.Unit,
		Quantity:       req.Quantity,
		EstimatedPrice: catalogItem.AveragePrice,
		AddedAt:        time.Now(),
	})
	if err := h.repo.Save(l); err != nil {
		h.logger.Error("saving list failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not add item"})
	}
	return c.JSON(http.StatusCreated, l)
}

// updateItem mutates quantity or purchased state of one entry.
func (h *Handler) updateItem(c echo.Context) error {
	l, err := h.ownedList(c)
	if err != nil {
		return err
	}

	req := new(UpdateItemRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	itemID := c.Param("itemId")
	for i := range l.Items {
		if l.Items[i].ItemID != itemID {
			continue
		}
		if req.Quantity != nil {
			l.Items[i].Quantity = *req.Quantity
		}
		if req.Purchased != nil {
			l.Items[i].Purchased = *req.Purchased
		}
		if err := h.repo.Save(l); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not update item"})
		}
		return c.JSON(http.StatusOK, l)
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "item not on the list"})
}

// removeItem drops one entry.
func (h *Handler) removeItem(c echo.Context) error {
	l, err := h.ownedList(c)
	if err != nil {
		return err
	}

	itemID := c.Param("itemId")
	for i := range l.Items {
		if l.Items[i].ItemID == itemID {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			if err := h.repo.Save(l); err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not remove item"})
			}
			return c.JSON(http.StatusOK, l)
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "item not on the list"})
}
