package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"gorm.io/gorm"
)

type APIKeyFilter struct {
	Status     string
	Permission string
	Created    DateRange
	ExpiryDate *time.Time // matches keys expiring on that calendar day
}

type APIKeyRepository struct {
	db *storage.Database
}

func NewAPIKeyRepository(db *storage.Database) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, apiKey *models.APIKey) error {
	return r.db.DB.WithContext(ctx).Create(apiKey).Error
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var apiKey models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("key_hash = ? AND status = ?", hash, models.StatusEnabled).
		First(&apiKey).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &apiKey, err
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uint) (*models.APIKey, error) {
	var apiKey models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&apiKey).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &apiKey, err
}

func (r *APIKeyRepository) List(ctx context.Context) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := latest(r.db.DB.WithContext(ctx), "api_keys").
		Find(&keys).Error

	return keys, err
}

// Matches id, name or status exactly
func (r *APIKeyRepository) Search(ctx context.Context, field, query string) ([]models.APIKey, error) {
	switch field {
	case "id", "name", "status":
	default:
		return nil, fmt.Errorf("unsupported search field: %s", field)
	}

	var keys []models.APIKey
	err := latest(r.db.DB.WithContext(ctx), "api_keys").
		Where(field+" = ?", query).
		Find(&keys).Error

	return keys, err
}

func (r *APIKeyRepository) Filter(ctx context.Context, filter APIKeyFilter) ([]models.APIKey, error) {
	q := r.db.DB.WithContext(ctx).Model(&models.APIKey{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Permission != "" {
		q = r.withPermission(q, filter.Permission)
	}
	q = filter.Created.apply(q, "created_at")
	if filter.ExpiryDate != nil {
		day := time.Date(filter.ExpiryDate.Year(), filter.ExpiryDate.Month(), filter.ExpiryDate.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("expiry_date >= ? AND expiry_date < ?", day, day.AddDate(0, 0, 1))
	}

	var keys []models.APIKey
	err := latest(q, "api_keys").Find(&keys).Error

	return keys, err
}

func (r *APIKeyRepository) withPermission(q *gorm.DB, permission string) *gorm.DB {
	return q.Where("CAST(permissions AS TEXT) LIKE ?", like(`"`+permission+`"`))
}

func (r *APIKeyRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id uint) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", time.Now().UTC()).Error
}

func (r *APIKeyRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.APIKey{})

	return result.RowsAffected > 0, result.Error
}

func (r *APIKeyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Count(&count).Error

	return count, err
}

func (r *APIKeyRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("status = ?", status).
		Count(&count).Error

	return count, err
}

func (r *APIKeyRepository) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", now.UTC()).
		Count(&count).Error

	return count, err
}

func (r *APIKeyRepository) CountByPermission(ctx context.Context, permission string) (int64, error) {
	var count int64
	err := r.withPermission(r.db.DB.WithContext(ctx).Model(&models.APIKey{}), permission).
		Count(&count).Error

	return count, err
}
