package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
)

func TestMonitorProbesRegisteredServices(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	s := newTestStore(t)
	ctx := context.Background()
	for name, url := range map[string]string{
		"healthy-service": healthy.URL,
		"failing-service": failing.URL,
		"dead-service":    dead.URL,
	} {
		_, err := s.Register(ctx, name, url)
		require.NoError(t, err)
	}

	m := NewMonitor(s, MonitorOptions{
		Interval: 25 * time.Millisecond,
		Timeout:  time.Second,
	}, config.NewNopLogger())
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	status := func(name string) model.HealthStatus {
		rec, err := s.Discover(ctx, name)
		require.NoError(t, err)
		return rec.Status
	}

	assert.Eventually(t, func() bool {
		return status("healthy-service") == model.HealthStatusHealthy &&
			status("failing-service") == model.HealthStatusUnhealthy &&
			status("dead-service") == model.HealthStatusUnhealthy
	}, 2*time.Second, 20*time.Millisecond)

	// Unhealthy services are still discoverable.
	rec, err := s.Discover(ctx, "dead-service")
	require.NoError(t, err)
	assert.Equal(t, dead.URL, rec.URL)
}

func TestMonitorStartTwiceFails(t *testing.T) {
	m := NewMonitor(newTestStore(t), MonitorOptions{Interval: time.Hour}, config.NewNopLogger())

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.Error(t, m.Start(context.Background()))
}

func TestMonitorStopWaitsForProbes(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	s := newTestStore(t)
	_, err := s.Register(context.Background(), "slow-service", slow.URL)
	require.NoError(t, err)

	m := NewMonitor(s, MonitorOptions{Interval: time.Hour, Timeout: time.Second}, config.NewNopLogger())
	require.NoError(t, m.Start(context.Background()))

	// Must not leak the in-flight probe goroutine.
	m.Stop()
}

func TestMonitorDefaults(t *testing.T) {
	m := NewMonitor(newTestStore(t), MonitorOptions{}, config.NewNopLogger())

	assert.Equal(t, 30*time.Second, m.opts.Interval)
	assert.Equal(t, 5*time.Second, m.opts.Timeout)
	assert.Equal(t, "/health", m.opts.Path)
}
