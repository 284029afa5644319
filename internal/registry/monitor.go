package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
)

// MonitorOptions tunes the health monitor.
type MonitorOptions struct {
	// Interval between probe cycles.
	Interval time.Duration
	// Timeout bounds each individual probe.
	Timeout time.Duration
	// Path is the well-known health endpoint on every service.
	Path string
	// StalenessWindow marks a record unhealthy when nothing refreshed it
	// within the window. Zero disables the sweep.
	StalenessWindow time.Duration
}

// Monitor periodically probes every registered service and feeds the
// outcome back into the store. Probes for distinct services run
// concurrently; one hung peer cannot stall the cycle.
type Monitor struct {
	store   Store
	opts    MonitorOptions
	client  *http.Client
	logger  config.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	startMu sync.Mutex
}

// NewMonitor creates a health monitor over store.
func NewMonitor(store Store, opts MonitorOptions, logger config.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Path == "" {
		opts.Path = "/health"
	}

	return &Monitor{
		store:  store,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// Start launches the probe loop. It returns an error if already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.cancel != nil {
		return fmt.Errorf("health monitor already started")
	}

	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("health monitor started",
		zap.Duration("interval", m.opts.Interval),
		zap.Duration("timeout", m.opts.Timeout))
	return nil
}

// Stop cancels the loop and waits for in-flight probes.
func (m *Monitor) Stop() {
	m.startMu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.startMu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// run sleeps, wakes, probes everything, and loops until cancelled.
func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAll(ctx)
		}
	}
}

// checkAll sweeps stale heartbeats, then probes every record concurrently.
func (m *Monitor) checkAll(ctx context.Context) {
	if m.opts.StalenessWindow > 0 {
		m.store.MarkStale(ctx, time.Now().Add(-m.opts.StalenessWindow))
	}

	for _, rec := range m.store.ListServices(ctx) {
		rec := rec
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.probe(ctx, rec)
		}()
	}
}

// probe issues one bounded GET against the service health endpoint. Any
// transport error, timeout or non-2xx response counts as unhealthy; a
// failed probe updates one record and never stops the monitor.
func (m *Monitor) probe(ctx context.Context, rec *model.ServiceRecord) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	url := strings.TrimSuffix(rec.URL, "/") + m.opts.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		m.logger.Error("building health probe failed",
			zap.String("service", rec.Name), zap.Error(err))
		m.store.UpdateHealth(ctx, rec.Name, false)
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.store.UpdateHealth(ctx, rec.Name, false)
		if rec.Status != model.HealthStatusUnhealthy {
			m.logger.Warn("service went down",
				zap.String("service", rec.Name), zap.Error(err))
		}
		return
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 300
	m.store.UpdateHealth(ctx, rec.Name, healthy)

	if healthy && rec.Status != model.HealthStatusHealthy {
		m.logger.Info("service is healthy", zap.String("service", rec.Name))
	} else if !healthy && rec.Status != model.HealthStatusUnhealthy {
		m.logger.Warn("service health probe returned error status",
			zap.String("service", rec.Name), zap.Int("status", resp.StatusCode))
	}
}
