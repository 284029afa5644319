package dispatch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/breaker"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/metrics"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/registry"
)

// forwardedHeaders is the restricted allow-list copied verbatim onto
// outbound calls. Everything else from the inbound request is dropped.
var forwardedHeaders = []string{
	"Authorization",
	"Content-Type",
	"Accept",
	"X-Request-ID",
}

// Request describes one outbound call to a logical service.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Body     []byte
	// Header carries the inbound request headers; only the allow-list is
	// forwarded.
	Header http.Header
}

// Result is the downstream response passed through unchanged.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Success reports whether the downstream answered with a 2xx.
func (r *Result) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Dispatcher combines discovery and breaker state to call logical services
// by name. It performs no retries; retry policy belongs to callers.
type Dispatcher struct {
	registry registry.Store
	breakers *breaker.Table
	client   *http.Client
	logger   config.Logger
	metrics  *metrics.Metrics
}

// New creates a dispatcher. metrics may be nil.
func New(reg registry.Store, breakers *breaker.Table, timeout time.Duration, m *metrics.Metrics, logger config.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		registry: reg,
		breakers: breakers,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		metrics:  m,
	}
}

// Breakers exposes the breaker table for introspection.
func (d *Dispatcher) Breakers() *breaker.Table {
	return d.breakers
}

// Dispatch resolves target, consults its breaker, performs the call and
// feeds the outcome back. A non-2xx downstream response is returned as a
// Result (status and body pass through) after counting a breaker failure;
// only calls that never produced a response yield an UnavailableError.
func (d *Dispatcher) Dispatch(ctx context.Context, target string, req *Request) (*Result, error) {
	start := time.Now()
	cb := d.breakers.Get(target)

	if !cb.Allow() {
		d.observe(target, metrics.OutcomeRejected, start, cb)
		d.logger.Warn("dispatch rejected, circuit open", zap.String("target", target))
		return nil, &UnavailableError{Service: target, Reason: ErrCircuitOpen}
	}

	rec, err := d.registry.Discover(ctx, target)
	if err != nil {
		// Never registered is indistinguishable from down, for callers.
		d.observe(target, metrics.OutcomeUnregistered, start, cb)
		return nil, &UnavailableError{Service: target, Reason: err}
	}

	httpReq, err := d.buildRequest(ctx, rec.URL, req)
	if err != nil {
		return nil, &UnavailableError{Service: target, Reason: err}
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		// Transport errors and caller timeouts both count against the
		// breaker, a cancelled call is not a silent drop.
		cb.RecordFailure()
		d.observe(target, metrics.OutcomeUnreachable, start, cb)
		d.logger.Warn("dispatch failed",
			zap.String("target", target), zap.Error(err))
		return nil, &UnavailableError{Service: target, Reason: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		cb.RecordFailure()
		d.observe(target, metrics.OutcomeUnreachable, start, cb)
		return nil, &UnavailableError{Service: target, Reason: err}
	}

	result := &Result{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if !result.Success() {
		cb.RecordFailure()
		d.observe(target, metrics.OutcomeDownstreamError, start, cb)
		return result, nil
	}

	cb.RecordSuccess()
	d.observe(target, metrics.OutcomeSuccess, start, cb)
	return result, nil
}

// buildRequest assembles the outbound HTTP request with the header
// allow-list applied.
func (d *Dispatcher) buildRequest(ctx context.Context, baseURL string, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	url := strings.TrimSuffix(baseURL, "/") + req.Path
	if req.RawQuery != "" {
		url += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for _, name := range forwardedHeaders {
		if v := req.Header.Get(name); v != "" {
			httpReq.Header.Set(name, v)
		}
	}
	return httpReq, nil
}

// observe publishes metrics for one attempt.
func (d *Dispatcher) observe(target, outcome string, start time.Time, cb *breaker.Breaker) {
	if d.metrics == nil {
		return
	}
	d.metrics.ObserveDispatch(target, outcome, time.Since(start))
	d.metrics.SetBreakerState(target, cb.State())
}
