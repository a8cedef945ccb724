package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-churiwal/api-manager/internal/config"
	"github.com/aman-churiwal/api-manager/internal/dispatcher"
	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/ratelimit"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/storage"
	log "github.com/sirupsen/logrus"
)

type CallLogService struct {
	repository *repository.CallLogRepository
	endpoints  *repository.EndpointRepository
	dispatcher *dispatcher.Dispatcher
	analytics  *AnalyticsService
	redis      *storage.RedisClient // nil disables dispatch limits
	algorithm  string
}

func NewCallLogService(
	repo *repository.CallLogRepository,
	endpoints *repository.EndpointRepository,
	dispatcher *dispatcher.Dispatcher,
	analytics *AnalyticsService,
	redis *storage.RedisClient,
	cfg config.RateLimitConfig,
) *CallLogService {
	return &CallLogService{
		repository: repo,
		endpoints:  endpoints,
		dispatcher: dispatcher,
		analytics:  analytics,
		redis:      redis,
		algorithm:  cfg.Algorithm,
	}
}

type CallLogStatistics struct {
	TotalCalls          int64   `json:"totalCalls"`
	SuccessfulCalls     int64   `json:"successfulCalls"`
	FailedCalls         int64   `json:"failedCalls"`
	AverageResponseTime float64 `json:"averageResponseTime"`
}

// One row of the monitoring view
type MonitoringLog struct {
	ID           uint          `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Endpoint     string        `json:"endpoint"`
	Method       models.Method `json:"method"`
	ResponseTime float64       `json:"responseTime"`
	StatusCode   int           `json:"statusCode"`
	Success      bool          `json:"success"`
	CallerIP     string        `json:"callerIp"`
}

// Looks up the endpoint, applies the dispatch guards and calls it
func (s *CallLogService) Dispatch(ctx context.Context, endpointID uint, callerIP string) (*models.CallLog, error) {
	endpoint, err := s.endpoints.FindByID(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	if endpoint == nil {
		return nil, ErrEndpointNotFound
	}
	if !endpoint.IsEnabled() {
		return nil, ErrEndpointDisabled
	}

	if err := s.checkLimits(ctx, endpoint, callerIP); err != nil {
		return nil, err
	}

	callLog, err := s.dispatcher.Dispatch(ctx, endpoint, callerIP)
	if err != nil {
		return nil, err
	}
	callLog.Endpoint = endpoint

	return callLog, nil
}

type dispatchLimit struct {
	key    string
	limit  int
	window time.Duration
}

func (s *CallLogService) checkLimits(ctx context.Context, endpoint *models.Endpoint, callerIP string) error {
	if s.redis == nil || endpoint.API == nil {
		return nil
	}

	settings := endpoint.API.Settings.Data()
	limits := []dispatchLimit{
		{fmt.Sprintf("dispatch:api:%d:hourly", endpoint.APIID), settings.GlobalSettings.MaxAPICallLimit, time.Hour},
		{fmt.Sprintf("dispatch:api:%d:global", endpoint.APIID), settings.Security.RateLimiting.Global, time.Minute},
		{fmt.Sprintf("dispatch:api:%d:caller:%s", endpoint.APIID, callerIP), settings.Security.RateLimiting.PerUser, time.Minute},
	}

	for _, l := range limits {
		if l.limit <= 0 {
			continue
		}
		limiter := ratelimit.NewLimiter(s.redis, s.algorithm, l.limit, l.window)
		allowed, err := limiter.Allow(ctx, l.key)
		if err != nil {
			// fail open
			log.WithError(err).WithField("key", l.key).Warn("dispatch limit check failed")
			continue
		}
		if !allowed {
			return ErrCallLimitExceeded
		}
	}
	return nil
}

func (s *CallLogService) Get(ctx context.Context, id uint) (*models.CallLog, error) {
	callLog, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if callLog == nil {
		return nil, ErrCallLogNotFound
	}
	return callLog, nil
}

func (s *CallLogService) List(ctx context.Context) ([]models.CallLog, error) {
	return s.repository.List(ctx)
}

func (s *CallLogService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.repository.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrCallLogNotFound
	}
	return nil
}

func (s *CallLogService) Search(ctx context.Context, field, query string) ([]models.CallLog, error) {
	switch field {
	case "endpoint", "method", "status":
	default:
		return nil, NewValidationError("The selected search by is invalid.")
	}
	return s.repository.Search(ctx, field, query)
}

func (s *CallLogService) Filter(ctx context.Context, filter repository.CallLogFilter) ([]models.CallLog, error) {
	return s.repository.Filter(ctx, filter)
}

func (s *CallLogService) Statistics(ctx context.Context) (*CallLogStatistics, error) {
	return callStatistics(ctx, s.analytics)
}

// Flattens logs into the monitoring view
func (s *CallLogService) Monitoring(ctx context.Context, filter repository.CallLogFilter) ([]MonitoringLog, error) {
	logs, err := s.repository.Filter(ctx, filter)
	if err != nil {
		return nil, err
	}

	view := make([]MonitoringLog, 0, len(logs))
	for _, l := range logs {
		response := l.Response.Data()
		entry := MonitoringLog{
			ID:           l.ID,
			Timestamp:    l.CreatedAt,
			ResponseTime: l.ResponseTime,
			StatusCode:   response.StatusCode,
			Success:      l.Status == models.CallSuccess,
			CallerIP:     response.CallerIP,
		}
		if l.Endpoint != nil {
			entry.Endpoint = l.Endpoint.Endpoint
			entry.Method = l.Endpoint.Method
		}
		view = append(view, entry)
	}
	return view, nil
}

func callStatistics(ctx context.Context, analytics *AnalyticsService) (*CallLogStatistics, error) {
	snapshot, err := analytics.Snapshot(ctx, repository.Scope{})
	if err != nil {
		return nil, err
	}
	return &CallLogStatistics{
		TotalCalls:          snapshot.TotalCalls,
		SuccessfulCalls:     snapshot.SuccessfulCalls,
		FailedCalls:         snapshot.FailedCalls,
		AverageResponseTime: snapshot.AverageResponseTime,
	}, nil
}
