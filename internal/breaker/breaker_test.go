package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New(3, 30*time.Second)

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := New(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// The streak restarts, two more failures must not open it.
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := New(1, 30*time.Second)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	now = now.Add(29 * time.Second)
	assert.False(t, b.Allow())

	// At exactly the open duration the next call is the trial.
	now = now.Add(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerHalfOpenTrialSuccessCloses(t *testing.T) {
	now := time.Now()
	b := New(1, 30*time.Second)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenTrialFailureReopens(t *testing.T) {
	now := time.Now()
	b := New(3, 30*time.Second)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	// A single trial failure reopens immediately, regardless of threshold.
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerFailureWhileOpenRestartsWindow(t *testing.T) {
	now := time.Now()
	b := New(1, 30*time.Second)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	// A failure recorded mid-window (e.g. from an in-flight call) pushes
	// the reopen moment out.
	now = now.Add(20 * time.Second)
	b.RecordFailure()

	now = now.Add(29 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow())
}

func TestBreakerConcurrentFailures(t *testing.T) {
	b := New(100, 30*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()

	stats := b.Stats()
	assert.Equal(t, 50, stats.ConsecutiveFailures)
	assert.Equal(t, StateClosed, stats.State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())

	data, err := StateOpen.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"open"`, string(data))
}
