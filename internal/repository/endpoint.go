package repository

import (
	"context"
	"fmt"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"gorm.io/gorm"
)

type EndpointFilter struct {
	Method  models.Method
	Status  string
	Created DateRange
}

type EndpointRepository struct {
	db *storage.Database
}

func NewEndpointRepository(db *storage.Database) *EndpointRepository {
	return &EndpointRepository{db: db}
}

func (r *EndpointRepository) Create(ctx context.Context, endpoint *models.Endpoint) error {
	return r.db.DB.WithContext(ctx).Create(endpoint).Error
}

func (r *EndpointRepository) FindByID(ctx context.Context, id uint) (*models.Endpoint, error) {
	var endpoint models.Endpoint
	err := r.db.DB.WithContext(ctx).
		Preload("API").
		Where("id = ?", id).
		First(&endpoint).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &endpoint, err
}

// Looks for a live endpoint with the same (api, path, method), ignoring excludeID
func (r *EndpointRepository) FindDuplicate(ctx context.Context, apiID uint, path string, method models.Method, excludeID uint) (*models.Endpoint, error) {
	var endpoint models.Endpoint
	q := r.db.DB.WithContext(ctx).
		Where("api_id = ? AND endpoint = ? AND method = ?", apiID, path, method)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	err := q.First(&endpoint).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &endpoint, err
}

func (r *EndpointRepository) List(ctx context.Context) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	err := latest(r.db.DB.WithContext(ctx), "endpoints").
		Find(&endpoints).Error

	return endpoints, err
}

// Matches field against query with LIKE; field must be endpoint, method or description
func (r *EndpointRepository) Search(ctx context.Context, field, query string) ([]models.Endpoint, error) {
	switch field {
	case "endpoint", "method", "description":
	default:
		return nil, fmt.Errorf("unsupported search field: %s", field)
	}

	var endpoints []models.Endpoint
	err := latest(r.db.DB.WithContext(ctx), "endpoints").
		Where(field+" LIKE ?", like(query)).
		Find(&endpoints).Error

	return endpoints, err
}

func (r *EndpointRepository) Filter(ctx context.Context, filter EndpointFilter) ([]models.Endpoint, error) {
	q := r.db.DB.WithContext(ctx).Model(&models.Endpoint{})
	if filter.Method != "" {
		q = q.Where("method = ?", filter.Method)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = filter.Created.apply(q, "created_at")

	var endpoints []models.Endpoint
	err := latest(q, "endpoints").Find(&endpoints).Error

	return endpoints, err
}

func (r *EndpointRepository) Save(ctx context.Context, endpoint *models.Endpoint) error {
	return r.db.DB.WithContext(ctx).Omit("API").Save(endpoint).Error
}

func (r *EndpointRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Endpoint{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Soft deletes the endpoint; its call logs keep pointing at it
func (r *EndpointRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Endpoint{})

	return result.RowsAffected > 0, result.Error
}

func (r *EndpointRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.Endpoint{}).
		Count(&count).Error

	return count, err
}

func (r *EndpointRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.Endpoint{}).
		Where("status = ?", status).
		Count(&count).Error

	return count, err
}

// Returns the endpoints with the given ids, soft deleted ones included
func (r *EndpointRepository) FindUnscoped(ctx context.Context, ids []uint) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	if len(ids) == 0 {
		return endpoints, nil
	}

	err := r.db.DB.WithContext(ctx).
		Unscoped().
		Preload("API").
		Where("id IN ?", ids).
		Find(&endpoints).Error

	return endpoints, err
}
