package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRegistry mimics the gateway's registration surface.
type stubRegistry struct {
	server     *httptest.Server
	registered atomic.Int32
	heartbeats atomic.Int32
	known      atomic.Bool
}

func newStubRegistry(t *testing.T) *stubRegistry {
	t.Helper()
	s := &stubRegistry{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/registry/register":
			s.registered.Add(1)
			s.known.Store(true)
			data, _ := json.Marshal(RegisterResponse{Name: "test-service", RegisteredAt: time.Now()})
			json.NewEncoder(w).Encode(Response{Code: http.StatusOK, Message: "service registered", Data: data})

		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/registry/heartbeat/"):
			if !s.known.Load() {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(Response{Code: http.StatusNotFound, Message: "service not registered"})
				return
			}
			s.heartbeats.Add(1)
			json.NewEncoder(w).Encode(Response{Code: http.StatusOK, Message: "heartbeat recorded"})

		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/registry/"):
			s.known.Store(false)
			json.NewEncoder(w).Encode(Response{Code: http.StatusOK, Message: "service deregistered"})

		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(Response{Code: http.StatusNotFound, Message: "no such route"})
		}
	}))
	return s
}

func newStubClient(t *testing.T, s *stubRegistry) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		ServerAddr:  s.server.URL,
		ServiceName: "test-service",
		ServiceURL:  "http://localhost:9999",
	})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(&Config{ServiceName: "x", ServiceURL: "http://x"})
	assert.Error(t, err)

	_, err = NewClient(&Config{ServerAddr: "localhost:3000", ServiceURL: "http://x"})
	assert.Error(t, err)

	_, err = NewClient(&Config{ServerAddr: "localhost:3000", ServiceName: "x"})
	assert.Error(t, err)

	c, err := NewClient(&Config{ServerAddr: "localhost:3000", ServiceName: "x", ServiceURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, c.config.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, c.config.Timeout)
}

func TestBuildURL(t *testing.T) {
	c, err := NewClient(&Config{ServerAddr: "localhost:3000", ServiceName: "x", ServiceURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/registry", c.buildURL("/registry"))

	c, err = NewClient(&Config{ServerAddr: "http://gw:3000/", ServiceName: "x", ServiceURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "http://gw:3000/registry", c.buildURL("/registry"))
}

func TestRegisterAndDeregister(t *testing.T) {
	stub := newStubRegistry(t)
	defer stub.server.Close()
	c := newStubClient(t, stub)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx))
	assert.True(t, c.IsRegistered())
	assert.Equal(t, int32(1), stub.registered.Load())

	require.NoError(t, c.Deregister(ctx))
	assert.False(t, c.IsRegistered())

	assert.Error(t, c.Deregister(ctx))
}

func TestSendHeartbeat(t *testing.T) {
	stub := newStubRegistry(t)
	defer stub.server.Close()
	c := newStubClient(t, stub)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx))
	require.NoError(t, c.SendHeartbeat(ctx))
	assert.Equal(t, int32(1), stub.heartbeats.Load())
}

func TestHeartbeatReRegistersAfterLostRecord(t *testing.T) {
	stub := newStubRegistry(t)
	defer stub.server.Close()
	c := newStubClient(t, stub)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx))

	// Simulate the operator wiping the registry.
	stub.known.Store(false)

	require.NoError(t, c.SendHeartbeat(ctx))
	assert.Equal(t, int32(2), stub.registered.Load())
}

func TestHeartbeatBeforeRegistrationRegisters(t *testing.T) {
	stub := newStubRegistry(t)
	defer stub.server.Close()
	c := newStubClient(t, stub)

	require.NoError(t, c.SendHeartbeat(context.Background()))
	assert.True(t, c.IsRegistered())
	assert.Equal(t, int32(1), stub.registered.Load())
}

func TestCloseDeregisters(t *testing.T) {
	stub := newStubRegistry(t)
	defer stub.server.Close()
	c := newStubClient(t, stub)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx))
	c.StartHeartbeat()

	require.NoError(t, c.Close(ctx))
	assert.False(t, c.IsRegistered())
	assert.False(t, stub.known.Load())
}
