package breaker

import (
	"sync"
	"time"
)

const (
	// DefaultFailureThreshold opens a breaker after this many consecutive
	// failures.
	DefaultFailureThreshold = 3
	// DefaultOpenDuration is how long an open breaker rejects calls before
	// allowing the half-open trial.
	DefaultOpenDuration = 30 * time.Second
)

// Table holds one breaker per downstream target, created lazily. Every
// component that makes outbound calls owns its own table, so one caller's
// failures never trip another caller's breakers.
type Table struct {
	mu               sync.RWMutex
	breakers         map[string]*Breaker
	failureThreshold int
	openDuration     time.Duration
}

// NewTable creates a breaker table with the given settings. Non-positive
// values fall back to the defaults.
func NewTable(failureThreshold int, openDuration time.Duration) *Table {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if openDuration <= 0 {
		openDuration = DefaultOpenDuration
	}
	return &Table{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		openDuration:     openDuration,
	}
}

// Get returns the breaker for target, creating it on first use.
func (t *Table) Get(target string) *Breaker {
	t.mu.RLock()
	b, ok := t.breakers[target]
	t.mu.RUnlock()
	if ok {
		return b
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check: another goroutine may have created it.
	if b, ok = t.breakers[target]; ok {
		return b
	}
	b = New(t.failureThreshold, t.openDuration)
	t.breakers[target] = b
	return b
}

// Stats returns a snapshot per known target.
func (t *Table) Stats() map[string]Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := make(map[string]Snapshot, len(t.breakers))
	for target, b := range t.breakers {
		stats[target] = b.Stats()
	}
	return stats
}

// Reset drops every breaker.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakers = make(map[string]*Breaker)
}
