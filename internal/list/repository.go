package list

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

// ListItem is one entry inside a shopping list, enriched with catalog data
// at the time it was added.
type ListItem struct {
	ItemID         string    `json:"item_id"`
	ItemName       string    `json:"item_name"`
	Unit           string    `json:"unit,omitempty"`
	Quantity       float64   `json:"quantity"`
	EstimatedPrice float64   `json:"estimated_price"`
	Purchased      bool      `json:"purchased"`
	AddedAt        time.Time `json:"added_at"`
}

// Summary aggregates a list's contents.
type Summary struct {
	TotalItems     int     `json:"total_items"`
	PurchasedItems int     `json:"purchased_items"`
	EstimatedTotal float64 `json:"estimated_total"`
}

// ShoppingList is one user-owned list.
type ShoppingList struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Items       []ListItem `json:"items"`
	Summary     Summary    `json:"summary"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Recalculate refreshes the summary from the items.
func (l *ShoppingList) Recalculate() {
	s := Summary{}
	for _, it := range l.Items {
		s.TotalItems++
		if it.Purchased {
			s.PurchasedItems++
		}
		s.EstimatedTotal += it.EstimatedPrice * it.Quantity
	}
	l.Summary = s
}

// Repository persists shopping lists in a jsondb collection.
type Repository struct {
	coll *jsondb.Collection
}

// NewRepository wraps the collection.
func NewRepository(coll *jsondb.Collection) *Repository {
	return &Repository{coll: coll}
}

// Create stores a new list for a user.
func (r *Repository) Create(userID, name, description string) (*ShoppingList, error) {
	now := time.Now()
	l := &ShoppingList{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Items:       []ListItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.coll.Insert(l.ID, l); err != nil {
		return nil, fmt.Errorf("storing list: %w", err)
	}
	return l, nil
}

// GetByID returns one list.
func (r *Repository) GetByID(id string) (*ShoppingList, error) {
	var l ShoppingList
	if err := r.coll.Get(id, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByUser returns every list owned by userID, optionally filtered by a
// name query.
func (r *Repository) FindByUser(userID, query string) ([]*ShoppingList, error) {
	query = strings.ToLower(query)

	var lists []*ShoppingList
	err := r.coll.ForEach(func(id string, raw json.RawMessage) error {
		var l ShoppingList
		if err := json.Unmarshal(raw, &l); err != nil {
			return err
		}
		if l.UserID != userID {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(l.Name), query) {
			return nil
		}
		lists = append(lists, &l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// Save persists a mutated list.
func (r *Repository) Save(l *ShoppingList) error {
	l.UpdatedAt = time.Now()
	l.Recalculate()
	return r.coll.Update(l.ID, l)
}

// Delete removes a list.
func (r *Repository) Delete(id string) error {
	return r.coll.Delete(id)
}
