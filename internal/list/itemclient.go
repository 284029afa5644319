package list

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

// CatalogItem is the subset of the item service's record the list service
// needs for enrichment.
type CatalogItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	AveragePrice float64 `json:"average_price"`
}

// ItemClient reads the catalog through the dispatcher, so the list
// service's own breaker guards its calls to the item service.
type ItemClient struct {
	dispatcher *dispatch.Dispatcher
	target     string
}

// NewItemClient creates a catalog client.
func NewItemClient(d *dispatch.Dispatcher) *ItemClient {
	return &ItemClient{dispatcher: d, target: "item-service"}
}

// GetItem fetches one catalog item. A 404 maps to jsondb.ErrNotFound;
// unavailability propagates as the dispatcher's UnavailableError.
func (c *ItemClient) GetItem(ctx context.Context, id string) (*CatalogItem, error) {
	res, err := c.dispatcher.Dispatch(ctx, c.target, &dispatch.Request{
		Method: http.MethodGet,
		Path:   "/api/items/" + id,
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("item %q: %w", id, jsondb.ErrNotFound)
	}
	if !res.Success() {
		return nil, fmt.Errorf("item service returned status %d", res.StatusCode)
	}

	var item CatalogItem
	if err := json.Unmarshal(res.Body, &item); err != nil {
		return nil, fmt.Errorf("parsing catalog item: %w", err)
	}
	return &item, nil
}
