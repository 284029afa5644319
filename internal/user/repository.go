package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
)

// ErrUsernameTaken is returned when registering a username that exists.
var ErrUsernameTaken = errors.New("username already taken")

// User is one account record.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists accounts in a jsondb collection.
type Repository struct {
	coll *jsondb.Collection
}

// NewRepository wraps the collection.
func NewRepository(coll *jsondb.Collection) *Repository {
	return &Repository{coll: coll}
}

// Create stores a new account. The username must be unique.
func (r *Repository) Create(username, email, passwordHash string) (*User, error) {
	if existing, err := r.GetByUsername(username); err == nil && existing != nil {
		return nil, fmt.Errorf("%q: %w", username, ErrUsernameTaken)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	if err := r.coll.Insert(u.ID, u); err != nil {
		return nil, fmt.Errorf("storing user: %w", err)
	}
	return u, nil
}

// GetByID returns an account by id.
func (r *Repository) GetByID(id string) (*User, error) {
	var u User
	if err := r.coll.Get(id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername scans for an account by username.
func (r *Repository) GetByUsername(username string) (*User, error) {
	var found *User
	err := r.coll.ForEach(func(id string, raw json.RawMessage) error {
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return err
		}
		if u.Username == username {
			found = &u
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%q: %w", username, jsondb.ErrNotFound)
	}
	return found, nil
}
