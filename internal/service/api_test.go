package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aman-churiwal/api-manager/internal/models"
)

func TestCreateAPIFillsDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	api, err := env.apiService.Create(ctx, "payments", []byte(`{"globalSettings":{"baseUrl":"https://pay.example.com","timeoutDuration":5,"maxApiCallLimit":10,"pagination":{"defaultPageSize":20}}}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	doc, err := env.apiService.Settings(ctx, api.ID)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if doc.GlobalSettings.BaseURL != "https://pay.example.com" || doc.GlobalSettings.TimeoutDuration != 5 {
		t.Fatalf("unexpected global settings: %+v", doc.GlobalSettings)
	}
	if doc.Logging.RetentionPeriod != models.DefaultSettings().Logging.RetentionPeriod {
		t.Fatalf("expected default logging category, got %+v", doc.Logging)
	}
}

func TestCreateAPIRejectsInvalidSettings(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.apiService.Create(context.Background(), "payments", []byte(`{"globalSettings":{"baseUrl":"https://pay.example.com","timeoutDuration":-1}}`))
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := env.apiService.Create(context.Background(), " ", nil); !IsValidation(err) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}
}

func TestReplaceCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api, err := env.apiService.Create(ctx, "payments", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.apiService.Category(ctx, api.ID, "billing"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := env.apiService.ReplaceCategory(ctx, api.ID, "billing", []byte(`{}`)); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}

	section, err := env.apiService.ReplaceCategory(ctx, api.ID, "logging", []byte(`{"status":"disabled","retentionPeriod":7,"storageLocation":"local"}`))
	if err != nil {
		t.Fatalf("replace category: %v", err)
	}
	logging, ok := section.(models.LoggingPolicy)
	if !ok || logging.RetentionPeriod != 7 || logging.Status != models.StatusDisabled {
		t.Fatalf("unexpected section: %#v", section)
	}

	if _, err := env.apiService.ReplaceCategory(ctx, api.ID, "logging", []byte(`{"status":"sometimes"}`)); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	stored, err := env.apiService.Category(ctx, api.ID, "logging")
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	if stored.(models.LoggingPolicy).RetentionPeriod != 7 {
		t.Fatalf("rejected write must not change stored settings: %#v", stored)
	}
}

func TestDeleteAPI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	api, err := env.apiService.Create(ctx, "payments", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.apiService.Delete(ctx, api.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.apiService.Get(ctx, api.ID); !errors.Is(err, ErrAPINotFound) {
		t.Fatalf("expected ErrAPINotFound, got %v", err)
	}
}
