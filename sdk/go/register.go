package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RegisterRequest is the registry's registration payload.
type RegisterRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Register announces the service to the registry. Registering an already
// registered name is an upsert on the registry side, so Register is also
// how a service recovers from a registry restart.
func (c *Client) Register(ctx context.Context) error {
	req := RegisterRequest{
		Name: c.config.ServiceName,
		URL:  c.config.ServiceURL,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/registry/register", req)
	if err != nil {
		return fmt.Errorf("registering %s: %w", c.config.ServiceName, err)
	}

	var registerResp RegisterResponse
	if err := json.Unmarshal(resp.Data, &registerResp); err != nil {
		return fmt.Errorf("decoding registration response: %w", err)
	}

	c.isRegistered = true
	return nil
}

// Deregister removes the service from the registry.
func (c *Client) Deregister(ctx context.Context) error {
	if !c.isRegistered {
		return fmt.Errorf("service is not registered")
	}

	if _, err := c.doRequest(ctx, http.MethodDelete, "/registry/"+c.config.ServiceName, nil); err != nil {
		return fmt.Errorf("deregistering %s: %w", c.config.ServiceName, err)
	}

	c.isRegistered = false
	return nil
}

// IsRegistered reports whether the last register/deregister succeeded.
func (c *Client) IsRegistered() bool {
	return c.isRegistered
}
