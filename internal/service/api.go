package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/settings"
	"gorm.io/datatypes"
)

// APIService owns API records and their settings documents
type APIService struct {
	repository *repository.APIRepository
	validator  *settings.Validator
}

func NewAPIService(repo *repository.APIRepository, validator *settings.Validator) *APIService {
	return &APIService{
		repository: repo,
		validator:  validator,
	}
}

// Creates an API. Categories missing from rawSettings take their default value.
func (s *APIService) Create(ctx context.Context, name string, rawSettings []byte) (*models.API, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("The api name field is required.")
	}

	doc, err := s.merge(models.DefaultSettings(), rawSettings)
	if err != nil {
		return nil, err
	}

	api := &models.API{Name: name, Settings: datatypes.NewJSONType(doc)}
	if err := s.repository.Create(ctx, api); err != nil {
		return nil, fmt.Errorf("failed to create api: %w", err)
	}
	return api, nil
}

func (s *APIService) Get(ctx context.Context, id uint) (*models.API, error) {
	api, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if api == nil {
		return nil, ErrAPINotFound
	}
	return api, nil
}

func (s *APIService) List(ctx context.Context) ([]models.API, error) {
	return s.repository.List(ctx)
}

// Replaces the name and the whole settings document
func (s *APIService) Replace(ctx context.Context, id uint, name string, rawSettings []byte) (*models.API, error) {
	api, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		api.Name = name
	}
	doc, err := s.merge(models.DefaultSettings(), rawSettings)
	if err != nil {
		return nil, err
	}
	api.Settings = datatypes.NewJSONType(doc)

	if err := s.repository.Save(ctx, api); err != nil {
		return nil, fmt.Errorf("failed to update api: %w", err)
	}
	return api, nil
}

func (s *APIService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.repository.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAPINotFound
	}
	return nil
}

func (s *APIService) Settings(ctx context.Context, id uint) (models.Settings, error) {
	api, err := s.Get(ctx, id)
	if err != nil {
		return models.Settings{}, err
	}
	return api.Settings.Data(), nil
}

func (s *APIService) Category(ctx context.Context, id uint, name string) (any, error) {
	category, err := models.ParseCategory(name)
	if err != nil {
		return nil, ErrInvalidCategory
	}
	doc, err := s.Settings(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Section(category), nil
}

// Replaces one category. Nothing is written when raw fails validation.
func (s *APIService) ReplaceCategory(ctx context.Context, id uint, name string, raw []byte) (any, error) {
	category, err := models.ParseCategory(name)
	if err != nil {
		return nil, ErrInvalidCategory
	}
	api, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.validator.MergeCategory(api.Settings.Data(), category, raw)
	if err != nil {
		return nil, schemaToValidation(err)
	}
	api.Settings = datatypes.NewJSONType(doc)

	if err := s.repository.Save(ctx, api); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return doc.Section(category), nil
}

func (s *APIService) merge(base models.Settings, raw []byte) (models.Settings, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return base, nil
	}
	doc, err := s.validator.Merge(base, raw)
	if err != nil {
		return base, schemaToValidation(err)
	}
	return doc, nil
}

func schemaToValidation(err error) error {
	var serr *settings.SchemaError
	if errors.As(err, &serr) {
		return NewValidationError(serr.Messages...)
	}
	return err
}
