package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
)

func TestCreateEndpointValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, "http://example.invalid")

	_, err := env.endpointSvc.Create(ctx, CreateEndpoint{APIID: api.ID + 100, Endpoint: "/x", Method: "get"})
	if !errors.Is(err, ErrAPINotFound) {
		t.Fatalf("expected ErrAPINotFound, got %v", err)
	}

	_, err = env.endpointSvc.Create(ctx, CreateEndpoint{APIID: api.ID, Endpoint: "/x", Method: "trace"})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for method, got %v", err)
	}

	_, err = env.endpointSvc.Create(ctx, CreateEndpoint{APIID: api.ID, Endpoint: "/x", Method: "post"})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for missing payload, got %v", err)
	}

	_, err = env.endpointSvc.Create(ctx, CreateEndpoint{APIID: api.ID, Endpoint: "/x", Method: "put", Payload: json.RawMessage(`"text"`)})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for scalar payload, got %v", err)
	}

	endpoint, err := env.endpointSvc.Create(ctx, CreateEndpoint{
		APIID:    api.ID,
		Endpoint: "/x",
		Method:   "POST",
		Payload:  json.RawMessage(`{"name":"widget"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if endpoint.Method != models.MethodPost || endpoint.Status != models.StatusEnabled {
		t.Fatalf("unexpected endpoint: %+v", endpoint)
	}
}

func TestCreateEndpointRejectsDuplicateUntilDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, "http://example.invalid")

	in := CreateEndpoint{APIID: api.ID, Endpoint: "/users", Method: "get"}
	first, err := env.endpointSvc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.endpointSvc.Create(ctx, in); !errors.Is(err, ErrDuplicateEndpoint) {
		t.Fatalf("expected ErrDuplicateEndpoint, got %v", err)
	}

	in.Method = "delete"
	if _, err := env.endpointSvc.Create(ctx, in); err != nil {
		t.Fatalf("same path with another method should be allowed: %v", err)
	}

	if err := env.endpointSvc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	in.Method = "get"
	if _, err := env.endpointSvc.Create(ctx, in); err != nil {
		t.Fatalf("expected create after soft delete to succeed: %v", err)
	}

	if err := env.endpointSvc.Delete(ctx, first.ID); !errors.Is(err, ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound on second delete, got %v", err)
	}
}

func TestUpdateEndpointIsPartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, "http://example.invalid")

	endpoint, err := env.endpointSvc.Create(ctx, CreateEndpoint{
		APIID:       api.ID,
		Endpoint:    "/items",
		Method:      "get",
		Description: "list items",
		Headers:     map[string]string{"X-Team": "core"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	description := "all items"
	updated, err := env.endpointSvc.Update(ctx, endpoint.ID, UpdateEndpoint{Description: &description})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "all items" || updated.Endpoint != "/items" || updated.Headers.Data()["X-Team"] != "core" {
		t.Fatalf("unexpected endpoint after update: %+v", updated)
	}

	post := "post"
	if _, err := env.endpointSvc.Update(ctx, endpoint.ID, UpdateEndpoint{Method: &post}); !IsValidation(err) {
		t.Fatalf("expected validation error switching to post without payload, got %v", err)
	}

	reloaded, err := env.endpointSvc.Get(ctx, endpoint.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Method != models.MethodGet {
		t.Fatalf("rejected update must not be persisted, method is %s", reloaded.Method)
	}
}

func TestSetStatusAndAnalytics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, "http://example.invalid")
	a := env.createEndpoint(t, api.ID, "/a", models.MethodGet)
	env.createEndpoint(t, api.ID, "/b", models.MethodGet)
	env.createEndpoint(t, api.ID, "/c", models.MethodGet)

	if _, err := env.endpointSvc.SetStatus(ctx, a.ID, models.StatusDisabled); err != nil {
		t.Fatalf("set status: %v", err)
	}
	env.createLog(t, a.ID, models.CallSuccess, 0.2, time.Now().UTC())
	env.createLog(t, a.ID, models.CallFailed, 0.4, time.Now().UTC())

	analytics, err := env.endpointSvc.Analytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.TotalAPIEndpoints != 3 || analytics.ActiveAPIEndpoints != 2 || analytics.InactiveAPIEndpoints != 1 {
		t.Fatalf("unexpected endpoint counts: %+v", analytics)
	}
	stats := analytics.APICallStatistics
	if stats.TotalCalls != 2 || stats.SuccessfulCalls != 1 || stats.FailedCalls != 1 || stats.AverageResponseTime != 0.3 {
		t.Fatalf("unexpected call statistics: %+v", stats)
	}
}

func TestHistoryAndPerformance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api := env.createAPI(t, "https://orders.example.com")
	endpoint := env.createEndpoint(t, api.ID, "/orders", models.MethodGet)
	env.createLog(t, endpoint.ID, models.CallSuccess, 0.1, time.Now().UTC())
	env.createLog(t, endpoint.ID, models.CallSuccess, 0.3, time.Now().UTC())

	history, err := env.endpointSvc.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	h := history[0]
	if h.APIName != "https://orders.example.com" || h.CallsMade != 2 || h.AverageResponseTime != 0.2 || h.Status != models.StatusEnabled {
		t.Fatalf("unexpected history entry: %+v", h)
	}

	perf, err := env.endpointSvc.Performance(ctx, endpoint.ID)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if perf.TotalCalls != 2 || perf.SuccessRate != 100 {
		t.Fatalf("unexpected performance: %+v", perf)
	}

	if _, err := env.endpointSvc.Performance(ctx, endpoint.ID+50); !errors.Is(err, ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
}

func TestEndpointSearchRejectsUnknownField(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.endpointSvc.Search(context.Background(), "status", "enabled"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
