package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Branch declares one constituent call of a composite endpoint: which
// target and path to hit, and whether the caller's credential is forwarded.
type Branch struct {
	Key         string
	Target      string
	Method      string
	Path        string
	RawQuery    string
	ForwardAuth bool
}

// BranchResult reflects one branch independently: a value on success, an
// error on failure. A failed branch never fails the whole aggregate.
type BranchResult struct {
	Key        string
	Value      json.RawMessage
	StatusCode int
	Err        error
}

// OK reports whether the branch produced usable data.
func (r BranchResult) OK() bool {
	return r.Err == nil
}

// Aggregator fans one composite read out over several dispatch calls
// concurrently and waits for all of them to settle.
type Aggregator struct {
	dispatcher *Dispatcher
}

// NewAggregator creates an aggregator over d.
func NewAggregator(d *Dispatcher) *Aggregator {
	return &Aggregator{dispatcher: d}
}

// Fetch runs every branch concurrently and returns one result per branch
// key. authorization is forwarded only to branches that declare it.
func (a *Aggregator) Fetch(ctx context.Context, branches []Branch, authorization string) map[string]BranchResult {
	results := make([]BranchResult, len(branches))

	var wg sync.WaitGroup
	for i, branch := range branches {
		wg.Add(1)
		go func(i int, branch Branch) {
			defer wg.Done()
			results[i] = a.fetchOne(ctx, branch, authorization)
		}(i, branch)
	}
	wg.Wait()

	out := make(map[string]BranchResult, len(results))
	for _, res := range results {
		out[res.Key] = res
	}
	return out
}

// fetchOne settles a single branch.
func (a *Aggregator) fetchOne(ctx context.Context, branch Branch, authorization string) BranchResult {
	header := http.Header{}
	if branch.ForwardAuth && authorization != "" {
		header.Set("Authorization", authorization)
	}

	res, err := a.dispatcher.Dispatch(ctx, branch.Target, &Request{
		Method:   branch.Method,
		Path:     branch.Path,
		RawQuery: branch.RawQuery,
		Header:   header,
	})
	if err != nil {
		return BranchResult{Key: branch.Key, Err: err}
	}
	if !res.Success() {
		return BranchResult{
			Key:        branch.Key,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("%s returned status %d", branch.Target, res.StatusCode),
		}
	}
	return BranchResult{
		Key:        branch.Key,
		StatusCode: res.StatusCode,
		Value:      json.RawMessage(res.Body),
	}
}
