package repository

import (
	"context"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"gorm.io/gorm"
)

type APIRepository struct {
	db *storage.Database
}

func NewAPIRepository(db *storage.Database) *APIRepository {
	return &APIRepository{db: db}
}

func (r *APIRepository) Create(ctx context.Context, api *models.API) error {
	return r.db.DB.WithContext(ctx).Create(api).Error
}

func (r *APIRepository) FindByID(ctx context.Context, id uint) (*models.API, error) {
	var api models.API
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&api).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &api, err
}

// Newest first
func (r *APIRepository) List(ctx context.Context) ([]models.API, error) {
	var apis []models.API
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&apis).Error

	return apis, err
}

// Writes every column of api back
func (r *APIRepository) Save(ctx context.Context, api *models.API) error {
	return r.db.DB.WithContext(ctx).Save(api).Error
}

func (r *APIRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.API{})

	return result.RowsAffected > 0, result.Error
}
