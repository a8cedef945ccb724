package repository

import (
	"context"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"gorm.io/gorm"
)

type AuthRepository struct {
	db *storage.Database
}

func NewUserRepository(db *storage.Database) *AuthRepository {
	return &AuthRepository{db: db}
}

// Inserts a new user into the database
func (r *AuthRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.DB.WithContext(ctx).Create(user).Error
}

// Retrieves user by email
func (r *AuthRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &user, err
}

// Retrieves user by id
func (r *AuthRepository) FindById(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &user, err
}

// Retrieves all users
func (r *AuthRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&users).Error

	return users, err
}

// Writes every column of an existing user
func (r *AuthRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.DB.WithContext(ctx).Save(user).Error
}

func (r *AuthRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Zero fields are ignored; Name matches as a substring
type UserFilter struct {
	Name   string
	Email  string
	Status string
	Role   string
}

func (r *AuthRepository) Filter(ctx context.Context, filter UserFilter) ([]models.User, error) {
	q := r.db.DB.WithContext(ctx).Model(&models.User{})
	if filter.Name != "" {
		q = q.Where("name LIKE ?", like(filter.Name))
	}
	if filter.Email != "" {
		q = q.Where("email = ?", filter.Email)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	var users []models.User
	err := q.Order("created_at DESC").Find(&users).Error

	return users, err
}

// Removes a user, reporting whether a row existed
func (r *AuthRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.User{})

	return result.RowsAffected > 0, result.Error
}
