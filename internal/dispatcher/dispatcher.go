package dispatcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aman-churiwal/api-manager/internal/circuitbreaker"
	"github.com/aman-churiwal/api-manager/internal/config"
	"github.com/aman-churiwal/api-manager/internal/models"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

var errUnavailable = errors.New("target answered with a server error")

// CallLogWriter persists the outcome of a dispatch
type CallLogWriter interface {
	Create(ctx context.Context, log *models.CallLog) error
}

// Dispatcher performs one outbound call per invocation and records it.
// Transport failures never surface as errors: they become failed call logs
// with status code 0 and the failure text in the response snapshot.
type Dispatcher struct {
	client *http.Client
	store  CallLogWriter
	cfg    config.DispatchConfig
	tracer trace.Tracer

	mu       sync.Mutex
	breakers map[uint]*circuitbreaker.Breaker
}

func New(store CallLogWriter, cfg config.DispatchConfig) *Dispatcher {
	return NewWithClient(&http.Client{}, store, cfg)
}

func NewWithClient(client *http.Client, store CallLogWriter, cfg config.DispatchConfig) *Dispatcher {
	defaults := config.Default().Dispatch
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaults.DefaultTimeout
	}
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaults.MaxResponseBody
	}

	return &Dispatcher{
		client:   client,
		store:    store,
		cfg:      cfg,
		tracer:   otel.Tracer("github.com/aman-churiwal/api-manager/internal/dispatcher"),
		breakers: make(map[uint]*circuitbreaker.Breaker),
	}
}

// Calls the endpoint and persists exactly one call log describing the outcome.
// The returned error is non-nil only when the log itself could not be written.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint *models.Endpoint, callerIP string) (*models.CallLog, error) {
	target := ResolveURL(baseURL(endpoint), endpoint.Endpoint)

	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("endpoint.id", int(endpoint.ID)),
			attribute.String("http.method", endpoint.Method.HTTP()),
			attribute.String("url.full", target),
		),
	)
	defer span.End()

	snapshot := models.CallResponse{URL: target, CallerIP: callerIP}

	start := time.Now()
	call := func() error {
		return d.do(ctx, endpoint, target, &snapshot)
	}

	var err error
	if breaker := d.breaker(endpoint.ID); breaker != nil {
		err = breaker.Execute(call)
	} else {
		err = call()
	}
	elapsed := time.Since(start)

	if err != nil && snapshot.StatusCode == 0 {
		snapshot.Error = err.Error()
	}

	status := models.StatusFromCode(snapshot.StatusCode)
	if snapshot.Error != "" {
		status = models.CallFailed
	}
	span.SetAttributes(attribute.Int("http.response.status_code", snapshot.StatusCode))
	if status == models.CallFailed {
		span.SetStatus(codes.Error, failureText(snapshot))
	}

	endpointID := endpoint.ID
	callLog := &models.CallLog{
		EndpointID:   &endpointID,
		Response:     datatypes.NewJSONType(snapshot),
		ResponseTime: RoundSeconds(elapsed),
		Status:       status,
	}

	// the caller may have gone away; the log is still owed
	if err := d.store.Create(context.WithoutCancel(ctx), callLog); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to record call log: %w", err)
	}

	log.WithFields(log.Fields{
		"endpoint_id":   endpoint.ID,
		"method":        endpoint.Method.HTTP(),
		"url":           target,
		"status":        status,
		"status_code":   snapshot.StatusCode,
		"response_time": callLog.ResponseTime,
	}).Info("dispatched call")

	return callLog, nil
}

func (d *Dispatcher) do(ctx context.Context, endpoint *models.Endpoint, target string, snapshot *models.CallResponse) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout(endpoint))
	defer cancel()

	req, err := buildRequest(ctx, endpoint, target)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxResponseBody))
	snapshot.StatusCode = resp.StatusCode
	snapshot.Headers = resp.Header
	snapshot.Body = string(body)
	if err != nil {
		// the transfer did not complete; keep what arrived
		snapshot.Error = err.Error()
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return errUnavailable
	}
	return nil
}

func buildRequest(ctx context.Context, endpoint *models.Endpoint, target string) (*http.Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid target url: %q", target)
	}

	if params := endpoint.Parameters.Data(); len(params) > 0 {
		query := u.Query()
		for k, v := range params {
			query.Set(k, v)
		}
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if endpoint.Method.HasBody() && len(endpoint.Payload) > 0 {
		body = bytes.NewReader(endpoint.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, endpoint.Method.HTTP(), u.String(), body)
	if err != nil {
		return nil, err
	}

	for k, v := range endpoint.Headers.Data() {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	return req, nil
}

// The owning API's timeoutDuration, falling back to the configured default
func (d *Dispatcher) timeout(endpoint *models.Endpoint) time.Duration {
	if endpoint.API != nil {
		if secs := endpoint.API.Settings.Data().GlobalSettings.TimeoutDuration; secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return d.cfg.DefaultTimeout
}

func (d *Dispatcher) breaker(endpointID uint) *circuitbreaker.Breaker {
	if !d.cfg.CircuitBreaker.Enabled {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cb, ok := d.breakers[endpointID]
	if !ok {
		cb = circuitbreaker.New(fmt.Sprintf("endpoint:%d", endpointID), circuitbreaker.FromConfig(d.cfg.CircuitBreaker))
		d.breakers[endpointID] = cb
	}
	return cb
}

// Returns a snapshot of every breaker created so far, keyed by endpoint id
func (d *Dispatcher) Breakers() map[uint]circuitbreaker.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[uint]circuitbreaker.Snapshot, len(d.breakers))
	for id, cb := range d.breakers {
		out[id] = cb.Snapshot()
	}
	return out
}

// Closes the breaker of one endpoint; reports whether it existed
func (d *Dispatcher) ResetBreaker(endpointID uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	cb, ok := d.breakers[endpointID]
	if ok {
		cb.Reset()
	}
	return ok
}

func baseURL(endpoint *models.Endpoint) string {
	if endpoint.API == nil {
		return ""
	}
	return endpoint.API.BaseURL()
}

// Joins base and path with exactly one slash. A path that is already an
// absolute URL is used as is.
func ResolveURL(base, path string) string {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Elapsed wall time in seconds, rounded to two decimals
func RoundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func failureText(snapshot models.CallResponse) string {
	if snapshot.Error != "" {
		return snapshot.Error
	}
	return http.StatusText(snapshot.StatusCode)
}
