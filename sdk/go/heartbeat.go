package sdk

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// SendHeartbeat pushes one liveness signal. If the registry answers 404
// the record is gone (operator reset, gateway restart) and the client
// re-registers instead. A client whose initial registration failed keeps
// retrying registration on the heartbeat cadence.
func (c *Client) SendHeartbeat(ctx context.Context) error {
	if !c.isRegistered {
		return c.Register(ctx)
	}

	resp, err := c.doRequest(ctx, http.MethodPut, "/registry/heartbeat/"+c.config.ServiceName, nil)
	if err != nil {
		if resp != nil && resp.Code == http.StatusNotFound {
			if regErr := c.Register(ctx); regErr != nil {
				return fmt.Errorf("re-registering after lost record: %w", regErr)
			}
			return nil
		}
		return fmt.Errorf("sending heartbeat: %w", err)
	}
	return nil
}

// StartHeartbeat launches the background heartbeat loop.
func (c *Client) StartHeartbeat() {
	c.StopHeartbeat()
	c.stopChan = make(chan struct{})

	go func() {
		ticker := time.NewTicker(c.config.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
				if err := c.SendHeartbeat(ctx); err != nil {
					log.Printf("heartbeat failed: %v, retrying next period", err)
				}
				cancel()
			case <-c.stopChan:
				return
			}
		}
	}()
}

// StopHeartbeat stops the background loop.
func (c *Client) StopHeartbeat() {
	if c.stopChan != nil {
		close(c.stopChan)
		c.stopChan = nil
	}
}

// Close stops the heartbeat and deregisters if needed.
func (c *Client) Close(ctx context.Context) error {
	c.StopHeartbeat()

	if c.isRegistered {
		if err := c.Deregister(ctx); err != nil {
			return fmt.Errorf("closing client: %w", err)
		}
	}
	return nil
}
