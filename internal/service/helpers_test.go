package service

import (
	"context"
	"testing"
	"time"

	"github.com/aman-churiwal/api-manager/internal/config"
	"github.com/aman-churiwal/api-manager/internal/dispatcher"
	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/settings"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"github.com/aman-churiwal/api-manager/internal/storage/storagetest"
	"gorm.io/datatypes"
)

type testEnv struct {
	db        *storage.Database
	apis      *repository.APIRepository
	endpoints *repository.EndpointRepository
	logs      *repository.CallLogRepository
	keys      *repository.APIKeyRepository

	analytics   *AnalyticsService
	apiService  *APIService
	endpointSvc *EndpointService
	callLogSvc  *CallLogService
	keyService  *APIKeyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := storagetest.New(t)
	env := &testEnv{
		db:        db,
		apis:      repository.NewAPIRepository(db),
		endpoints: repository.NewEndpointRepository(db),
		logs:      repository.NewCallLogRepository(db),
		keys:      repository.NewAPIKeyRepository(db),
	}

	validator, err := settings.NewValidator()
	if err != nil {
		t.Fatalf("settings validator: %v", err)
	}

	cfg := config.Default()
	cfg.Dispatch.DefaultTimeout = 2 * time.Second

	env.analytics = NewAnalyticsService(env.logs, env.endpoints)
	env.apiService = NewAPIService(env.apis, validator)
	env.endpointSvc = NewEndpointService(env.endpoints, env.apis, env.analytics)
	env.callLogSvc = NewCallLogService(env.logs, env.endpoints, dispatcher.New(env.logs, cfg.Dispatch), env.analytics, nil, cfg.RateLimit)
	env.keyService = NewAPIKeyService(env.keys, nil)

	return env
}

func (e *testEnv) createAPI(t *testing.T, baseURL string) *models.API {
	t.Helper()
	doc := models.DefaultSettings()
	doc.GlobalSettings.BaseURL = baseURL
	api := &models.API{Name: "orders", Settings: datatypes.NewJSONType(doc)}
	if err := e.apis.Create(context.Background(), api); err != nil {
		t.Fatalf("create api: %v", err)
	}
	return api
}

func (e *testEnv) createEndpoint(t *testing.T, apiID uint, path string, method models.Method) *models.Endpoint {
	t.Helper()
	endpoint := &models.Endpoint{
		APIID:    apiID,
		Endpoint: path,
		Method:   method,
		Status:   models.StatusEnabled,
	}
	if err := e.endpoints.Create(context.Background(), endpoint); err != nil {
		t.Fatalf("create endpoint: %v", err)
	}
	return endpoint
}

func (e *testEnv) createLog(t *testing.T, endpointID uint, status models.CallStatus, responseTime float64, createdAt time.Time) {
	t.Helper()
	log := &models.CallLog{
		EndpointID:   &endpointID,
		Status:       status,
		ResponseTime: responseTime,
		CreatedAt:    createdAt,
	}
	if err := e.logs.Create(context.Background(), log); err != nil {
		t.Fatalf("create call log: %v", err)
	}
}
