package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config configures the registry client.
type Config struct {
	// Gateway address, e.g. "localhost:3000".
	ServerAddr string `json:"server_addr"`
	// Name this service registers under.
	ServiceName string `json:"service_name"`
	// Base URL other services reach this one at.
	ServiceURL string `json:"service_url"`
	// Heartbeat period, defaults to 10s.
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	// Per-request timeout, defaults to 5s.
	Timeout time.Duration `json:"timeout"`
	// Use HTTPS towards the gateway.
	Secure bool `json:"secure"`
}

// Client registers a service with the gateway's registry and keeps it
// alive with periodic heartbeats.
type Client struct {
	config       *Config
	httpClient   *http.Client
	isRegistered bool
	stopChan     chan struct{}
}

// Response is the registry's response envelope.
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RegisterResponse is the payload of a successful registration.
type RegisterResponse struct {
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewClient validates the config and builds a client.
func NewClient(config *Config) (*Client, error) {
	if config.ServerAddr == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if config.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if config.ServiceURL == "" {
		return nil, fmt.Errorf("service URL is required")
	}

	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 10 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		stopChan:   make(chan struct{}),
	}, nil
}

func (c *Client) buildURL(path string) string {
	addr := strings.TrimSuffix(c.config.ServerAddr, "/")
	if strings.Contains(addr, "://") {
		return addr + path
	}
	protocol := "http"
	if c.config.Secure {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s%s", protocol, addr, path)
}

// doRequest sends one request and decodes the envelope. A non-200 status
// returns both the decoded envelope and an error describing it.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	url := c.buildURL(path)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling registry: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var apiResp Response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w (body: %s)", err, string(respBody))
	}

	if resp.StatusCode != http.StatusOK {
		return &apiResp, fmt.Errorf("registry returned %d: %s", resp.StatusCode, apiResp.Message)
	}
	return &apiResp, nil
}
