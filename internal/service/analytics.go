package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
)

// AnalyticsService computes performance statistics over the call logs. Every
// figure is recomputed from the store on each call, and the same formulas
// serve the global view and the per-endpoint drill-down.
type AnalyticsService struct {
	logs      *repository.CallLogRepository
	endpoints *repository.EndpointRepository
}

func NewAnalyticsService(logs *repository.CallLogRepository, endpoints *repository.EndpointRepository) *AnalyticsService {
	return &AnalyticsService{
		logs:      logs,
		endpoints: endpoints,
	}
}

// Performance figures over a set of call logs
type Snapshot struct {
	TotalCalls          int64   `json:"totalCalls"`
	SuccessfulCalls     int64   `json:"successfulCalls"`
	FailedCalls         int64   `json:"failedCalls"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	SuccessRate         float64 `json:"successRate"`
	ErrorRate           float64 `json:"errorRate"`
	Throughput          float64 `json:"throughput"`    // calls per active minute
	PeakUsageTime       string  `json:"peakUsageTime"` // "HH:00" UTC, empty without calls
	TotalResponseTime   float64 `json:"totalResponseTime"`
}

// Snapshot scoped to one endpoint
type EndpointUsage struct {
	EndpointID uint          `json:"endpointId"`
	Endpoint   string        `json:"endpoint"`
	Method     models.Method `json:"method"`
	Snapshot
}

type Performance struct {
	Snapshot
	APIUsageByEndpoint []EndpointUsage `json:"apiUsageByEndpoint"`
}

func (s *AnalyticsService) TotalCalls(ctx context.Context, scope repository.Scope) (int64, error) {
	return s.logs.Count(ctx, scope)
}

func (s *AnalyticsService) SuccessfulCalls(ctx context.Context, scope repository.Scope) (int64, error) {
	return s.logs.CountByStatus(ctx, scope, models.CallSuccess)
}

func (s *AnalyticsService) FailedCalls(ctx context.Context, scope repository.Scope) (int64, error) {
	return s.logs.CountByStatus(ctx, scope, models.CallFailed)
}

func (s *AnalyticsService) AverageResponseTime(ctx context.Context, scope repository.Scope) (float64, error) {
	totals, err := s.logs.Totals(ctx, scope)
	if err != nil {
		return 0, err
	}
	return averageSeconds(totals.Centis, totals.Total), nil
}

func (s *AnalyticsService) SuccessRate(ctx context.Context, scope repository.Scope) (float64, error) {
	totals, err := s.logs.Totals(ctx, scope)
	if err != nil {
		return 0, err
	}
	return percentage(totals.Successful, totals.Total), nil
}

func (s *AnalyticsService) ErrorRate(ctx context.Context, scope repository.Scope) (float64, error) {
	totals, err := s.logs.Totals(ctx, scope)
	if err != nil {
		return 0, err
	}
	return percentage(totals.Failed, totals.Total), nil
}

func (s *AnalyticsService) Throughput(ctx context.Context, scope repository.Scope) (float64, error) {
	times, err := s.logs.CreatedAtTimes(ctx, scope)
	if err != nil {
		return 0, err
	}
	return throughput(times), nil
}

func (s *AnalyticsService) PeakUsageTime(ctx context.Context, scope repository.Scope) (string, error) {
	times, err := s.logs.CreatedAtTimes(ctx, scope)
	if err != nil {
		return "", err
	}
	return peakHour(times), nil
}

func (s *AnalyticsService) TotalResponseTime(ctx context.Context, scope repository.Scope) (float64, error) {
	centis, err := s.logs.SumCentis(ctx, scope)
	if err != nil {
		return 0, err
	}
	return float64(centis) / 100, nil
}

// Computes every figure for scope. Counts and the response-time sum come
// from one aggregate query so total always equals successful plus failed.
func (s *AnalyticsService) Snapshot(ctx context.Context, scope repository.Scope) (*Snapshot, error) {
	totals, err := s.logs.Totals(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("aggregate calls: %w", err)
	}
	times, err := s.logs.CreatedAtTimes(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load call times: %w", err)
	}

	return &Snapshot{
		TotalCalls:          totals.Total,
		SuccessfulCalls:     totals.Successful,
		FailedCalls:         totals.Failed,
		AverageResponseTime: averageSeconds(totals.Centis, totals.Total),
		SuccessRate:         percentage(totals.Successful, totals.Total),
		ErrorRate:           percentage(totals.Failed, totals.Total),
		Throughput:          throughput(times),
		PeakUsageTime:       peakHour(times),
		TotalResponseTime:   float64(totals.Centis) / 100,
	}, nil
}

// One snapshot per endpoint that has calls, deleted endpoints included
func (s *AnalyticsService) UsageByEndpoint(ctx context.Context) ([]EndpointUsage, error) {
	ids, err := s.logs.DistinctEndpointIDs(ctx)
	if err != nil {
		return nil, err
	}

	endpoints, err := s.endpoints.FindUnscoped(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Endpoint, len(endpoints))
	for _, e := range endpoints {
		byID[e.ID] = e
	}

	usage := make([]EndpointUsage, 0, len(ids))
	for _, id := range ids {
		snapshot, err := s.Snapshot(ctx, repository.EndpointScope(id))
		if err != nil {
			return nil, err
		}
		entry := EndpointUsage{EndpointID: id, Snapshot: *snapshot}
		if e, ok := byID[id]; ok {
			entry.Endpoint = e.Endpoint
			entry.Method = e.Method
		}
		usage = append(usage, entry)
	}

	return usage, nil
}

// Global snapshot plus the per-endpoint breakdown
func (s *AnalyticsService) Performance(ctx context.Context) (*Performance, error) {
	snapshot, err := s.Snapshot(ctx, repository.Scope{})
	if err != nil {
		return nil, err
	}
	usage, err := s.UsageByEndpoint(ctx)
	if err != nil {
		return nil, err
	}
	return &Performance{Snapshot: *snapshot, APIUsageByEndpoint: usage}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Mean in seconds of values given in hundredths, rounded to two decimals
func averageSeconds(centis, count int64) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(centis)/float64(count)) / 100
}

func percentage(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(100 * float64(n) / float64(total))
}

// Mean number of calls per minute over the minutes that saw any call
func throughput(times []time.Time) float64 {
	if len(times) == 0 {
		return 0
	}
	buckets := make(map[int64]struct{}, len(times))
	for _, t := range times {
		buckets[t.UTC().Truncate(time.Minute).Unix()] = struct{}{}
	}
	return round2(float64(len(times)) / float64(len(buckets)))
}

// Hour of day with the most calls; ties go to the earliest hour
func peakHour(times []time.Time) string {
	if len(times) == 0 {
		return ""
	}
	var counts [24]int
	for _, t := range times {
		counts[t.UTC().Hour()]++
	}
	peak := 0
	for h := 1; h < len(counts); h++ {
		if counts[h] > counts[peak] {
			peak = h
		}
	}
	return fmt.Sprintf("%02d:00", peak)
}
