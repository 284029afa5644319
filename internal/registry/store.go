package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
)

// ErrNotRegistered is returned by Discover when the name was never
// registered. Discovery never fails merely because a service is unhealthy.
var ErrNotRegistered = errors.New("service not registered")

// Store is the service registry interface.
type Store interface {
	// Register upserts a service record. It always succeeds; re-registering
	// an existing name keeps its original RegisteredAt.
	Register(ctx context.Context, name, url string) (*model.ServiceRecord, error)

	// Deregister removes a record explicitly.
	Deregister(ctx context.Context, name string) error

	// Discover returns the record for name, ErrNotRegistered otherwise.
	// Callers decide whether to use a degraded instance.
	Discover(ctx context.Context, name string) (*model.ServiceRecord, error)

	// UpdateHealth records a health check or heartbeat outcome. Unknown
	// names are a silent no-op.
	UpdateHealth(ctx context.Context, name string, healthy bool)

	// MarkStale flips records without a successful check since the cutoff
	// to unhealthy and returns how many were flipped.
	MarkStale(ctx context.Context, cutoff time.Time) int

	// ListServices returns all records in name order.
	ListServices(ctx context.Context) []*model.ServiceRecord

	// GetStats returns the summarized per-service view.
	GetStats(ctx context.Context) map[string]model.ServiceStats

	// Reset drops every record.
	Reset(ctx context.Context)
}

// memoryStore implements Store with a process-local table, optionally
// snapshotted to a flat file after every mutation.
type memoryStore struct {
	mu       sync.RWMutex
	records  map[string]*model.ServiceRecord
	snapshot *Snapshot
	logger   config.Logger
	now      func() time.Time
}

// NewStore creates a registry store. snapshot may be nil to disable
// persistence; when set, the last saved state is reloaded.
func NewStore(snapshot *Snapshot, logger config.Logger) Store {
	s := &memoryStore{
		records:  make(map[string]*model.ServiceRecord),
		snapshot: snapshot,
		logger:   logger,
		now:      time.Now,
	}

	if snapshot != nil {
		records, err := snapshot.Load()
		if err != nil {
			// Best effort: a missing or corrupt snapshot means an empty
			// registry, never a startup failure.
			logger.Warn("registry snapshot not loaded, starting empty", zap.Error(err))
		} else {
			s.records = records
		}
	}

	return s
}

// Register upserts a service record.
func (s *memoryStore) Register(ctx context.Context, name, url string) (*model.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, exists := s.records[name]
	if exists {
		rec.URL = url
		rec.Status = model.HealthStatusUnknown
		rec.LastHealthCheck = now
	} else {
		rec = &model.ServiceRecord{
			Name:            name,
			URL:             url,
			Status:          model.HealthStatusUnknown,
			RegisteredAt:    now,
			LastHealthCheck: now,
		}
		s.records[name] = rec
	}

	s.logger.Info("service registered",
		zap.String("service", name),
		zap.String("url", url),
		zap.Bool("replaced", exists))

	s.persistLocked()
	out := *rec
	return &out, nil
}

// Deregister removes a record.
func (s *memoryStore) Deregister(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotRegistered)
	}
	delete(s.records, name)

	s.logger.Info("service deregistered", zap.String("service", name))

	s.persistLocked()
	return nil
}

// Discover returns the record for name.
func (s *memoryStore) Discover(ctx context.Context, name string) (*model.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotRegistered)
	}
	out := *rec
	return &out, nil
}

// UpdateHealth records a check or heartbeat outcome. Last writer wins; a
// late heartbeat for an unknown name must not fail.
func (s *memoryStore) UpdateHealth(ctx context.Context, name string, healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		s.logger.Debug("health update for unknown service ignored", zap.String("service", name))
		return
	}

	now := s.now()
	rec.LastHealthCheck = now
	if healthy {
		rec.Status = model.HealthStatusHealthy
		rec.LastSeenHealthy = now
	} else {
		rec.Status = model.HealthStatusUnhealthy
	}

	s.persistLocked()
}

// MarkStale flips records whose last check is older than cutoff.
func (s *memoryStore) MarkStale(ctx context.Context, cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	flipped := 0
	for _, rec := range s.records {
		if rec.Status != model.HealthStatusUnhealthy && rec.LastHealthCheck.Before(cutoff) {
			rec.Status = model.HealthStatusUnhealthy
			flipped++
			s.logger.Warn("service heartbeat went stale", zap.String("service", rec.Name))
		}
	}

	if flipped > 0 {
		s.persistLocked()
	}
	return flipped
}

// ListServices returns every record sorted by name.
func (s *memoryStore) ListServices(ctx context.Context) []*model.ServiceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.ServiceRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetStats returns the summarized view used by the health aggregate.
func (s *memoryStore) GetStats(ctx context.Context) map[string]model.ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]model.ServiceStats, len(s.records))
	for name, rec := range s.records {
		stats[name] = model.ServiceStats{
			Status:          rec.Status,
			LastHealthCheck: rec.LastHealthCheck,
		}
	}
	return stats
}

// Reset drops all records.
func (s *memoryStore) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return
	}
	s.records = make(map[string]*model.ServiceRecord)
	s.logger.Warn("registry reset, all records dropped")
}

// persistLocked writes the snapshot while holding the table lock. Write
// failures are logged; the in-memory mutation always stands.
func (s *memoryStore) persistLocked() {
	if s.snapshot == nil {
		return
	}
	if err := s.snapshot.Save(s.records); err != nil {
		s.logger.Error("registry snapshot write failed", zap.Error(err))
	}
}
