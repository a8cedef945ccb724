package dispatcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-churiwal/api-manager/internal/circuitbreaker"
	"github.com/aman-churiwal/api-manager/internal/config"
	"github.com/aman-churiwal/api-manager/internal/models"
	"gorm.io/datatypes"
)

type memoryStore struct {
	mu   sync.Mutex
	logs []*models.CallLog
}

func (m *memoryStore) Create(ctx context.Context, log *models.CallLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uint(len(m.logs) + 1)
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func newEndpoint(baseURL, path string, method models.Method, timeout float64) *models.Endpoint {
	settings := models.DefaultSettings()
	settings.GlobalSettings.BaseURL = baseURL
	settings.GlobalSettings.TimeoutDuration = timeout

	return &models.Endpoint{
		ID:       7,
		APIID:    1,
		API:      &models.API{ID: 1, Name: "test", Settings: datatypes.NewJSONType(settings)},
		Endpoint: path,
		Method:   method,
		Status:   models.StatusEnabled,
	}
}

func newDispatcher(store CallLogWriter) *Dispatcher {
	return New(store, config.Default().Dispatch)
}

func TestDispatchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Target", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	store := &memoryStore{}
	log, err := newDispatcher(store).Dispatch(context.Background(), newEndpoint(server.URL, "/users", models.MethodGet, 5), "10.0.0.9")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if store.count() != 1 {
		t.Fatalf("expected exactly one call log, got %d", store.count())
	}
	if log.Status != models.CallSuccess {
		t.Fatalf("expected success, got %s", log.Status)
	}
	if log.ResponseTime < 0 {
		t.Fatalf("expected non-negative response time, got %v", log.ResponseTime)
	}

	snapshot := log.Response.Data()
	if snapshot.StatusCode != http.StatusOK || snapshot.Body != `{"ok":true}` {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.CallerIP != "10.0.0.9" {
		t.Fatalf("expected caller ip to be recorded, got %q", snapshot.CallerIP)
	}
	if got := snapshot.Headers["X-Target"]; len(got) != 1 || got[0] != "yes" {
		t.Fatalf("expected response headers to be captured, got %v", snapshot.Headers)
	}
	if log.EndpointID == nil || *log.EndpointID != 7 {
		t.Fatal("expected call log to reference the endpoint")
	}
}

func TestDispatchServerErrorIsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	log, err := newDispatcher(&memoryStore{}).Dispatch(context.Background(), newEndpoint(server.URL, "/users", models.MethodGet, 5), "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if log.Status != models.CallFailed {
		t.Fatalf("expected failed, got %s", log.Status)
	}
	if log.Response.Data().StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status code 500, got %d", log.Response.Data().StatusCode)
	}
}

func TestDispatchClientErrorIsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	log, err := newDispatcher(&memoryStore{}).Dispatch(context.Background(), newEndpoint(server.URL, "/missing", models.MethodGet, 5), "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if log.Status != models.CallFailed {
		t.Fatalf("expected failed, got %s", log.Status)
	}
}

func TestDispatchConnectionRefusedWritesFailedLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	store := &memoryStore{}
	d := newDispatcher(store)

	for i := 0; i < 2; i++ {
		log, err := d.Dispatch(context.Background(), newEndpoint(target, "/users", models.MethodGet, 5), "")
		if err != nil {
			t.Fatalf("dispatch should not fail on transport errors: %v", err)
		}
		if log.Status != models.CallFailed {
			t.Fatalf("expected failed, got %s", log.Status)
		}
		snapshot := log.Response.Data()
		if snapshot.StatusCode != 0 || snapshot.Error == "" {
			t.Fatalf("expected status code 0 with an error text, got %+v", snapshot)
		}
	}
	if store.count() != 2 {
		t.Fatalf("expected one log per attempt, got %d", store.count())
	}
}

func TestDispatchGetSendsNoBody(t *testing.T) {
	var gotBody string
	var gotQuery, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotQuery = r.URL.Query().Get("page")
		gotHeader = r.Header.Get("X-Tenant")
	}))
	defer server.Close()

	endpoint := newEndpoint(server.URL, "/users", models.MethodGet, 5)
	endpoint.Payload = datatypes.JSON(`{"ignored":true}`)
	endpoint.Parameters = datatypes.NewJSONType(map[string]string{"page": "2"})
	endpoint.Headers = datatypes.NewJSONType(map[string]string{"X-Tenant": "acme"})

	if _, err := newDispatcher(&memoryStore{}).Dispatch(context.Background(), endpoint, ""); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotBody != "" {
		t.Fatalf("expected GET to carry no body, got %q", gotBody)
	}
	if gotQuery != "2" || gotHeader != "acme" {
		t.Fatalf("expected parameters and headers to be sent, got page=%q tenant=%q", gotQuery, gotHeader)
	}
}

func TestDispatchPostSendsPayload(t *testing.T) {
	var gotBody, gotMethod, gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	endpoint := newEndpoint(server.URL, "orders", models.MethodPost, 5)
	endpoint.Payload = datatypes.JSON(`{"sku":"A1"}`)

	log, err := newDispatcher(&memoryStore{}).Dispatch(context.Background(), endpoint, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotMethod != http.MethodPost || gotBody != `{"sku":"A1"}` {
		t.Fatalf("expected POST with payload, got %s %q", gotMethod, gotBody)
	}
	if gotType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotType)
	}
	if log.Status != models.CallSuccess {
		t.Fatalf("expected 201 to count as success, got %s", log.Status)
	}
}

func TestDispatchHonorsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	log, err := newDispatcher(&memoryStore{}).Dispatch(context.Background(), newEndpoint(server.URL, "/slow", models.MethodGet, 0.1), "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("expected dispatch to give up after the api timeout, took %v", time.Since(start))
	}
	if log.Status != models.CallFailed || log.Response.Data().Error == "" {
		t.Fatalf("expected a failed log with an error, got %+v", log.Response.Data())
	}
}

func TestDispatchBodyStallIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"partial":`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	log, err := newDispatcher(&memoryStore{}).Dispatch(context.Background(), newEndpoint(server.URL, "/stall", models.MethodGet, 0.3), "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	snapshot := log.Response.Data()
	if log.Status != models.CallFailed {
		t.Fatalf("expected an incomplete transfer to be failed, got %s", log.Status)
	}
	if snapshot.StatusCode != http.StatusOK || snapshot.Body != `{"partial":` || snapshot.Error == "" {
		t.Fatalf("expected status code, partial body and error to be kept, got %+v", snapshot)
	}
}

func TestBodyStallCountsAgainstBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "{")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := config.Default().Dispatch
	cfg.CircuitBreaker.Enabled = true
	cfg.CircuitBreaker.MaxFailures = 1
	cfg.CircuitBreaker.OpenTimeout = time.Minute

	d := New(&memoryStore{}, cfg)
	endpoint := newEndpoint(server.URL, "/stall", models.MethodGet, 0.2)
	if _, err := d.Dispatch(context.Background(), endpoint, ""); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if d.Breakers()[endpoint.ID].State != circuitbreaker.StateOpen {
		t.Fatalf("expected breaker to open, got %s", d.Breakers()[endpoint.ID].State)
	}
}

func TestOpenBreakerSkipsTarget(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Default().Dispatch
	cfg.CircuitBreaker.Enabled = true
	cfg.CircuitBreaker.MaxFailures = 1
	cfg.CircuitBreaker.OpenTimeout = time.Minute

	store := &memoryStore{}
	d := New(store, cfg)
	endpoint := newEndpoint(server.URL, "/flaky", models.MethodGet, 5)

	_, _ = d.Dispatch(context.Background(), endpoint, "")
	log, err := d.Dispatch(context.Background(), endpoint, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected the open breaker to skip the target, got %d hits", hits)
	}
	if log.Status != models.CallFailed || !strings.Contains(log.Response.Data().Error, "circuit breaker") {
		t.Fatalf("expected failed log from open breaker, got %+v", log.Response.Data())
	}
	if store.count() != 2 {
		t.Fatalf("expected a log for each dispatch, got %d", store.count())
	}

	if !d.ResetBreaker(endpoint.ID) {
		t.Fatal("expected breaker to exist")
	}
	if d.Breakers()[endpoint.ID].State != circuitbreaker.StateClosed {
		t.Fatal("expected breaker to be closed after reset")
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"https://api.example.com", "/users", "https://api.example.com/users"},
		{"https://api.example.com/", "users", "https://api.example.com/users"},
		{"https://api.example.com/v1/", "/users", "https://api.example.com/v1/users"},
		{"https://api.example.com", "https://other.example.com/x", "https://other.example.com/x"},
		{"", "/users", "/users"},
	}
	for _, c := range cases {
		if got := ResolveURL(c.base, c.path); got != c.want {
			t.Fatalf("ResolveURL(%q, %q) = %q, want %q", c.base, c.path, got, c.want)
		}
	}
}

func TestRoundSeconds(t *testing.T) {
	if got := RoundSeconds(1234 * time.Millisecond); got != 1.23 {
		t.Fatalf("expected 1.23, got %v", got)
	}
	if got := RoundSeconds(0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
