package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"gorm.io/gorm"
)

// Restricts aggregate queries to one endpoint; the zero value covers every log
type Scope struct {
	EndpointID *uint
}

func EndpointScope(id uint) Scope {
	return Scope{EndpointID: &id}
}

type CallLogFilter struct {
	Method          models.Method
	Status          models.CallStatus
	Endpoint        string
	MinResponseTime *float64
	Created         DateRange
}

type CallLogRepository struct {
	db *storage.Database
}

func NewCallLogRepository(db *storage.Database) *CallLogRepository {
	return &CallLogRepository{db: db}
}

// Inserts a new call log
func (r *CallLogRepository) Create(ctx context.Context, log *models.CallLog) error {
	return r.db.DB.WithContext(ctx).Omit("Endpoint").Create(log).Error
}

func (r *CallLogRepository) withEndpoint(ctx context.Context) *gorm.DB {
	return r.db.DB.WithContext(ctx).Preload("Endpoint", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	})
}

func (r *CallLogRepository) FindByID(ctx context.Context, id uint) (*models.CallLog, error) {
	var log models.CallLog
	err := r.withEndpoint(ctx).
		Where("id = ?", id).
		First(&log).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &log, err
}

// Newest first
func (r *CallLogRepository) List(ctx context.Context) ([]models.CallLog, error) {
	var logs []models.CallLog
	err := latest(r.withEndpoint(ctx), "call_logs").
		Find(&logs).Error

	return logs, err
}

func (r *CallLogRepository) Filter(ctx context.Context, filter CallLogFilter) ([]models.CallLog, error) {
	q := r.withEndpoint(ctx).Model(&models.CallLog{})

	if filter.Method != "" || filter.Endpoint != "" {
		q = q.Joins("JOIN endpoints ON endpoints.id = call_logs.endpoint_id")
		if filter.Method != "" {
			q = q.Where("endpoints.method = ?", filter.Method)
		}
		if filter.Endpoint != "" {
			q = q.Where("endpoints.endpoint = ?", filter.Endpoint)
		}
	}
	if filter.Status != "" {
		q = q.Where("call_logs.status = ?", filter.Status)
	}
	if filter.MinResponseTime != nil {
		q = q.Where("call_logs.response_time >= ?", *filter.MinResponseTime)
	}
	q = filter.Created.apply(q, "call_logs.created_at")

	var logs []models.CallLog
	err := latest(q, "call_logs").Find(&logs).Error

	return logs, err
}

// searchBy endpoint or method matches the owning endpoint with LIKE, status matches exactly
func (r *CallLogRepository) Search(ctx context.Context, field, query string) ([]models.CallLog, error) {
	q := r.withEndpoint(ctx).Model(&models.CallLog{})

	switch field {
	case "status":
		q = q.Where("call_logs.status = ?", query)
	case "endpoint", "method":
		q = q.Joins("JOIN endpoints ON endpoints.id = call_logs.endpoint_id").
			Where("endpoints."+field+" LIKE ?", like(query))
	default:
		return nil, fmt.Errorf("unsupported search field: %s", field)
	}

	var logs []models.CallLog
	err := latest(q, "call_logs").Find(&logs).Error

	return logs, err
}

// Soft deletes a call log
func (r *CallLogRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.CallLog{})

	return result.RowsAffected > 0, result.Error
}

func (r *CallLogRepository) scoped(ctx context.Context, scope Scope) *gorm.DB {
	q := r.db.DB.WithContext(ctx).Model(&models.CallLog{})
	if scope.EndpointID != nil {
		q = q.Where("endpoint_id = ?", *scope.EndpointID)
	}
	return q
}

func (r *CallLogRepository) Count(ctx context.Context, scope Scope) (int64, error) {
	var count int64
	err := r.scoped(ctx, scope).Count(&count).Error

	return count, err
}

func (r *CallLogRepository) CountByStatus(ctx context.Context, scope Scope, status models.CallStatus) (int64, error) {
	var count int64
	err := r.scoped(ctx, scope).
		Where("status = ?", status).
		Count(&count).Error

	return count, err
}

// Sum of response times in hundredths of a second. Every stored value already
// has two decimals, so summing integers keeps the mean free of float drift.
func (r *CallLogRepository) SumCentis(ctx context.Context, scope Scope) (int64, error) {
	var sum float64
	err := r.scoped(ctx, scope).
		Select("COALESCE(SUM(ROUND(response_time * 100)), 0)").
		Scan(&sum).Error

	return int64(math.Round(sum)), err
}

// Counts and response-time sum for scope, read in a single statement so the
// figures agree with each other under concurrent inserts
type CallTotals struct {
	Total      int64
	Successful int64
	Failed     int64
	Centis     int64
}

func (r *CallLogRepository) Totals(ctx context.Context, scope Scope) (CallTotals, error) {
	var row struct {
		Total      int64
		Successful int64
		Failed     int64
		Centis     float64
	}
	err := r.scoped(ctx, scope).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS successful,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(ROUND(response_time * 100)), 0) AS centis`,
			models.CallSuccess, models.CallFailed).
		Scan(&row).Error
	if err != nil {
		return CallTotals{}, err
	}

	return CallTotals{
		Total:      row.Total,
		Successful: row.Successful,
		Failed:     row.Failed,
		Centis:     int64(math.Round(row.Centis)),
	}, nil
}

// Creation times of every log in scope, for time bucketing
func (r *CallLogRepository) CreatedAtTimes(ctx context.Context, scope Scope) ([]time.Time, error) {
	var times []time.Time
	err := r.scoped(ctx, scope).
		Pluck("created_at", &times).Error

	return times, err
}

// Endpoint ids that have at least one live log, in order of first appearance
func (r *CallLogRepository) DistinctEndpointIDs(ctx context.Context) ([]uint, error) {
	var rows []struct {
		EndpointID uint
	}
	err := r.db.DB.WithContext(ctx).
		Model(&models.CallLog{}).
		Select("endpoint_id, MIN(id) AS first_id").
		Where("endpoint_id IS NOT NULL").
		Group("endpoint_id").
		Order("first_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.EndpointID)
	}
	return ids, nil
}

// Soft deletes the logs of one API's endpoints created before the cutoff
func (r *CallLogRepository) DeleteOlderThan(ctx context.Context, apiID uint, before time.Time) (int64, error) {
	endpointIDs := r.db.DB.Unscoped().
		Model(&models.Endpoint{}).
		Select("id").
		Where("api_id = ?", apiID)

	result := r.db.DB.WithContext(ctx).
		Where("endpoint_id IN (?) AND created_at < ?", endpointIDs, before.UTC()).
		Delete(&models.CallLog{})

	return result.RowsAffected, result.Error
}
