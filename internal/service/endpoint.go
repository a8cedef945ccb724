package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"gorm.io/datatypes"
)

type EndpointService struct {
	repository *repository.EndpointRepository
	apis       *repository.APIRepository
	analytics  *AnalyticsService
}

func NewEndpointService(repo *repository.EndpointRepository, apis *repository.APIRepository, analytics *AnalyticsService) *EndpointService {
	return &EndpointService{
		repository: repo,
		apis:       apis,
		analytics:  analytics,
	}
}

type CreateEndpoint struct {
	APIID       uint
	Endpoint    string
	Method      string
	Description string
	Status      string
	Headers     map[string]string
	Payload     json.RawMessage
	Parameters  map[string]string
}

// Nil fields are left unchanged
type UpdateEndpoint struct {
	Endpoint    *string
	Method      *string
	Description *string
	Status      *string
	Headers     map[string]string
	Payload     json.RawMessage
	Parameters  map[string]string
}

type EndpointAnalytics struct {
	TotalAPIEndpoints    int64             `json:"totalApiEndpoints"`
	ActiveAPIEndpoints   int64             `json:"activeApiEndpoints"`
	InactiveAPIEndpoints int64             `json:"inactiveApiEndpoints"`
	APICallStatistics    CallLogStatistics `json:"apiCallStatistics"`
}

type EndpointHistory struct {
	EndpointID          uint          `json:"endpointId"`
	APIName             string        `json:"apiName"`
	Endpoint            string        `json:"endpoint"`
	Method              models.Method `json:"method"`
	CallsMade           int64         `json:"callsMade"`
	AverageResponseTime float64       `json:"averageResponseTime"`
	Status              string        `json:"status"`
}

type EndpointPerformance struct {
	EndpointID uint          `json:"endpointId"`
	Endpoint   string        `json:"endpoint"`
	Method     models.Method `json:"method"`
	Status     string        `json:"status"`
	Snapshot
}

func (s *EndpointService) Create(ctx context.Context, in CreateEndpoint) (*models.Endpoint, error) {
	api, err := s.apis.FindByID(ctx, in.APIID)
	if err != nil {
		return nil, err
	}
	if api == nil {
		return nil, ErrAPINotFound
	}

	method, ok := models.ParseMethod(in.Method)
	if !ok {
		return nil, NewValidationError("The selected method is invalid.")
	}
	status := in.Status
	if status == "" {
		status = models.StatusEnabled
	}

	endpoint := &models.Endpoint{
		APIID:       in.APIID,
		Endpoint:    strings.TrimSpace(in.Endpoint),
		Method:      method,
		Description: in.Description,
		Status:      status,
		Headers:     datatypes.NewJSONType(orEmpty(in.Headers)),
		Payload:     datatypes.JSON(in.Payload),
		Parameters:  datatypes.NewJSONType(orEmpty(in.Parameters)),
	}
	if err := validatePayload(endpoint); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, endpoint); err != nil {
		return nil, err
	}

	if err := s.repository.Create(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("failed to create endpoint: %w", err)
	}
	endpoint.API = api

	return endpoint, nil
}

func (s *EndpointService) Get(ctx context.Context, id uint) (*models.Endpoint, error) {
	endpoint, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if endpoint == nil {
		return nil, ErrEndpointNotFound
	}
	return endpoint, nil
}

func (s *EndpointService) List(ctx context.Context) ([]models.Endpoint, error) {
	return s.repository.List(ctx)
}

func (s *EndpointService) Update(ctx context.Context, id uint, in UpdateEndpoint) (*models.Endpoint, error) {
	endpoint, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Endpoint != nil {
		endpoint.Endpoint = strings.TrimSpace(*in.Endpoint)
	}
	if in.Method != nil {
		method, ok := models.ParseMethod(*in.Method)
		if !ok {
			return nil, NewValidationError("The selected method is invalid.")
		}
		endpoint.Method = method
	}
	if in.Description != nil {
		endpoint.Description = *in.Description
	}
	if in.Status != nil {
		endpoint.Status = *in.Status
	}
	if in.Headers != nil {
		endpoint.Headers = datatypes.NewJSONType(in.Headers)
	}
	if in.Payload != nil {
		endpoint.Payload = datatypes.JSON(in.Payload)
	}
	if in.Parameters != nil {
		endpoint.Parameters = datatypes.NewJSONType(in.Parameters)
	}

	if err := validatePayload(endpoint); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, endpoint); err != nil {
		return nil, err
	}

	if err := s.repository.Save(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("failed to update endpoint: %w", err)
	}
	return endpoint, nil
}

func (s *EndpointService) SetStatus(ctx context.Context, id uint, status string) (*models.Endpoint, error) {
	endpoint, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repository.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	endpoint.Status = status
	return endpoint, nil
}

func (s *EndpointService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.repository.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrEndpointNotFound
	}
	return nil
}

func (s *EndpointService) Search(ctx context.Context, field, query string) ([]models.Endpoint, error) {
	switch field {
	case "endpoint", "method", "description":
	default:
		return nil, NewValidationError("The selected search by is invalid.")
	}
	return s.repository.Search(ctx, field, query)
}

func (s *EndpointService) Filter(ctx context.Context, filter repository.EndpointFilter) ([]models.Endpoint, error) {
	return s.repository.Filter(ctx, filter)
}

func (s *EndpointService) Analytics(ctx context.Context) (*EndpointAnalytics, error) {
	total, err := s.repository.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.repository.CountByStatus(ctx, models.StatusEnabled)
	if err != nil {
		return nil, err
	}
	stats, err := callStatistics(ctx, s.analytics)
	if err != nil {
		return nil, err
	}

	return &EndpointAnalytics{
		TotalAPIEndpoints:    total,
		ActiveAPIEndpoints:   active,
		InactiveAPIEndpoints: total - active,
		APICallStatistics:    *stats,
	}, nil
}

// Call counts and mean latency for every endpoint that has been called
func (s *EndpointService) History(ctx context.Context) ([]EndpointHistory, error) {
	usage, err := s.analytics.UsageByEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(usage))
	for _, u := range usage {
		ids = append(ids, u.EndpointID)
	}
	endpoints, err := s.repository.FindUnscoped(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Endpoint, len(endpoints))
	for _, e := range endpoints {
		byID[e.ID] = e
	}

	history := make([]EndpointHistory, 0, len(usage))
	for _, u := range usage {
		entry := EndpointHistory{
			EndpointID:          u.EndpointID,
			Endpoint:            u.Endpoint,
			Method:              u.Method,
			CallsMade:           u.TotalCalls,
			AverageResponseTime: u.AverageResponseTime,
		}
		if e, ok := byID[u.EndpointID]; ok {
			entry.Status = e.Status
			if e.API != nil {
				entry.APIName = e.API.BaseURL()
			}
		}
		history = append(history, entry)
	}
	return history, nil
}

func (s *EndpointService) Performance(ctx context.Context, id uint) (*EndpointPerformance, error) {
	endpoint, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.analytics.Snapshot(ctx, repository.EndpointScope(id))
	if err != nil {
		return nil, err
	}

	return &EndpointPerformance{
		EndpointID: endpoint.ID,
		Endpoint:   endpoint.Endpoint,
		Method:     endpoint.Method,
		Status:     endpoint.Status,
		Snapshot:   *snapshot,
	}, nil
}

func (s *EndpointService) ensureUnique(ctx context.Context, endpoint *models.Endpoint) error {
	dup, err := s.repository.FindDuplicate(ctx, endpoint.APIID, endpoint.Endpoint, endpoint.Method, endpoint.ID)
	if err != nil {
		return err
	}
	if dup != nil {
		return ErrDuplicateEndpoint
	}
	return nil
}

// Methods that carry a body need a JSON object or array payload
func validatePayload(endpoint *models.Endpoint) error {
	payload := strings.TrimSpace(string(endpoint.Payload))
	if payload == "" || payload == "null" {
		if endpoint.Method.HasBody() {
			return NewValidationError(fmt.Sprintf("The payload field is required when method is %s.", endpoint.Method))
		}
		endpoint.Payload = nil
		return nil
	}
	if !json.Valid([]byte(payload)) || (payload[0] != '{' && payload[0] != '[') {
		return NewValidationError("The payload field must be an array.")
	}
	return nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
