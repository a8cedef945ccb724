package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
)

func TestDispatchRecordsCallLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, server.URL)
	endpoint := env.createEndpoint(t, api.ID, "/ping", models.MethodGet)

	callLog, err := env.callLogSvc.Dispatch(ctx, endpoint.ID, "203.0.113.9")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if callLog.Status != models.CallSuccess || callLog.ResponseTime < 0 {
		t.Fatalf("unexpected call log: %+v", callLog)
	}
	if callLog.Endpoint == nil || callLog.Endpoint.ID != endpoint.ID {
		t.Fatalf("expected endpoint attached to call log")
	}

	stored, err := env.callLogSvc.Get(ctx, callLog.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	response := stored.Response.Data()
	if response.StatusCode != http.StatusOK || response.Body != `{"ok":true}` || response.CallerIP != "203.0.113.9" {
		t.Fatalf("unexpected stored response: %+v", response)
	}
}

func TestDispatchGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, "http://example.invalid")
	endpoint := env.createEndpoint(t, api.ID, "/off", models.MethodGet)

	if _, err := env.callLogSvc.Dispatch(ctx, endpoint.ID+10, ""); !errors.Is(err, ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}

	if _, err := env.endpointSvc.SetStatus(ctx, endpoint.ID, models.StatusDisabled); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := env.callLogSvc.Dispatch(ctx, endpoint.ID, ""); !errors.Is(err, ErrEndpointDisabled) {
		t.Fatalf("expected ErrEndpointDisabled, got %v", err)
	}

	count, err := env.logs.Count(ctx, repository.Scope{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected dispatches must not write call logs, found %d", count)
	}
}

func TestDispatchUnreachableIsFailedLog(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, target)
	endpoint := env.createEndpoint(t, api.ID, "/gone", models.MethodGet)

	callLog, err := env.callLogSvc.Dispatch(ctx, endpoint.ID, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if callLog.Status != models.CallFailed || callLog.Response.Data().StatusCode != 0 || callLog.Response.Data().Error == "" {
		t.Fatalf("expected failed log with error text, got %+v", callLog.Response.Data())
	}
}

func TestCallLogQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, "http://example.invalid")
	get := env.createEndpoint(t, api.ID, "/users", models.MethodGet)
	post := env.createEndpoint(t, api.ID, "/users", models.MethodPost)

	base := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	env.createLog(t, get.ID, models.CallSuccess, 0.1, base)
	env.createLog(t, post.ID, models.CallFailed, 0.5, base.Add(time.Hour))
	env.createLog(t, get.ID, models.CallFailed, 0.9, base.Add(2*time.Hour))

	logs, err := env.callLogSvc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 3 || logs[0].ResponseTime != 0.9 {
		t.Fatalf("expected newest first, got %+v", logs)
	}

	filtered, err := env.callLogSvc.Filter(ctx, repository.CallLogFilter{Method: models.MethodGet, Status: models.CallFailed})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ResponseTime != 0.9 {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}

	found, err := env.callLogSvc.Search(ctx, "method", "pos")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Endpoint == nil || found[0].Endpoint.Method != models.MethodPost {
		t.Fatalf("unexpected search result: %+v", found)
	}
	if _, err := env.callLogSvc.Search(ctx, "response", "x"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	view, err := env.callLogSvc.Monitoring(ctx, repository.CallLogFilter{})
	if err != nil {
		t.Fatalf("monitoring: %v", err)
	}
	if len(view) != 3 || view[0].Endpoint != "/users" || view[0].Method != models.MethodGet || view[0].Success {
		t.Fatalf("unexpected monitoring view: %+v", view)
	}

	stats, err := env.callLogSvc.Statistics(ctx)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalCalls != 3 || stats.FailedCalls != 2 || stats.AverageResponseTime != 0.5 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}

	if err := env.callLogSvc.Delete(ctx, logs[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.callLogSvc.Get(ctx, logs[0].ID); !errors.Is(err, ErrCallLogNotFound) {
		t.Fatalf("expected ErrCallLogNotFound, got %v", err)
	}
}
