package item

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

// Item is one catalog entry.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Brand        string    `json:"brand,omitempty"`
	Unit         string    `json:"unit"`
	AveragePrice float64   `json:"average_price"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter narrows catalog queries. Zero values match everything.
type Filter struct {
	Category string
	Query    string
}

// Repository persists the catalog in a jsondb collection.
type Repository struct {
	coll *jsondb.Collection
}

// NewRepository wraps the collection.
func NewRepository(coll *jsondb.Collection) *Repository {
	return &Repository{coll: coll}
}

// Create stores a new catalog item.
func (r *Repository) Create(it *Item) (*Item, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.Active = true
	it.CreatedAt = time.Now()

	if err := r.coll.Insert(it.ID, it); err != nil {
		return nil, fmt.Errorf("storing item: %w", err)
	}
	return it, nil
}

// GetByID returns one item.
func (r *Repository) GetByID(id string) (*Item, error) {
	var it Item
	if err := r.coll.Get(id, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Find returns active items matching the filter, in stored order.
func (r *Repository) Find(filter Filter) ([]*Item, error) {
	query := strings.ToLower(filter.Query)

	var items []*Item
	err := r.coll.ForEach(func(id string, raw json.RawMessage) error {
		var it Item
		if err := json.Unmarshal(raw, &it); err != nil {
			return err
		}
		if !it.Active {
			return nil
		}
		if filter.Category != "" && !strings.EqualFold(it.Category, filter.Category) {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(it.Name), query) {
			return nil
		}
		items = append(items, &it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Categories returns the distinct categories of active items.
func (r *Repository) Categories() ([]string, error) {
	seen := make(map[string]bool)
	var categories []string
	err := r.coll.ForEach(func(id string, raw json.RawMessage) error {
		var it Item
		if err := json.Unmarshal(raw, &it); err != nil {
			return err
		}
		if it.Active && !seen[it.Category] {
			seen[it.Category] = true
			categories = append(categories, it.Category)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// Seed populates the catalog with the default grocery items when the
// collection is empty.
func (r *Repository) Seed() error {
	if r.coll.Count() > 0 {
		return nil
	}

	defaults := []Item{
		{Name: "Rice", Category: "grains", Unit: "kg", AveragePrice: 5.50},
		{Name: "Black Beans", Category: "grains", Unit: "kg", AveragePrice: 8.90},
		{Name: "Spaghetti", Category: "grains", Unit: "un", AveragePrice: 4.20},
		{Name: "Whole Milk", Category: "dairy", Unit: "litro", AveragePrice: 4.80},
		{Name: "Mozzarella", Category: "dairy", Unit: "kg", AveragePrice: 39.90},
		{Name: "Butter", Category: "dairy", Unit: "un", AveragePrice: 9.70},
		{Name: "Chicken Breast", Category: "meat", Unit: "kg", AveragePrice: 19.90},
		{Name: "Ground Beef", Category: "meat", Unit: "kg", AveragePrice: 32.50},
		{Name: "Tomato", Category: "produce", Unit: "kg", AveragePrice: 7.40},
		{Name: "Onion", Category: "produce", Unit: "kg", AveragePrice: 5.10},
		{Name: "Banana", Category: "produce", Unit: "kg", AveragePrice: 6.30},
		{Name: "Coffee", Category: "pantry", Unit: "un", AveragePrice: 18.90},
		{Name: "Sugar", Category: "pantry", Unit: "kg", AveragePrice: 4.60},
		{Name: "Olive Oil", Category: "pantry", Unit: "un", AveragePrice: 29.90},
		{Name: "Dish Soap", Category: "cleaning", Unit: "un", AveragePrice: 3.20},
		{Name: "Laundry Detergent", Category: "cleaning", Unit: "un", AveragePrice: 24.90},
	}

	for i := range defaults {
		if _, err := r.Create(&defaults[i]); err != nil {
			return fmt.Errorf("seeding catalog: %w", err)
		}
	}
	return nil
}
