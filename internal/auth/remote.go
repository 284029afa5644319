package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
)

// ValidateResponse is the wire shape of the user service's validate
// endpoint.
type ValidateResponse struct {
	Valid bool      `json:"valid"`
	User  *Identity `json:"user,omitempty"`
}

// RemoteChecker delegates token validation to the identity-owning service
// through the dispatcher, so a user-service outage trips its breaker and
// degrades every protected endpoint uniformly.
type RemoteChecker struct {
	dispatcher *dispatch.Dispatcher
	target     string
	path       string
}

// NewRemoteChecker creates a checker that calls target's validate endpoint.
func NewRemoteChecker(d *dispatch.Dispatcher, target string) *RemoteChecker {
	return &RemoteChecker{
		dispatcher: d,
		target:     target,
		path:       "/api/auth/validate",
	}
}

// Check validates the token against the remote identity service.
func (c *RemoteChecker) Check(ctx context.Context, token string) (*Identity, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	res, err := c.dispatcher.Dispatch(ctx, c.target, &dispatch.Request{
		Method: http.MethodGet,
		Path:   c.path,
		Header: header,
	})
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, fmt.Errorf("%w: validation returned status %d", ErrInvalidToken, res.StatusCode)
	}

	var payload ValidateResponse
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return nil, fmt.Errorf("parsing validation response: %w", err)
	}
	if !payload.Valid || payload.User == nil {
		return nil, ErrInvalidToken
	}
	return payload.User, nil
}
