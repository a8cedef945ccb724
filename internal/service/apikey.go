package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/storage"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const apiKeyCacheTTL = 5 * time.Minute

type APIKeyService struct {
	repository *repository.APIKeyRepository
	redis      *storage.RedisClient // optional cache
	now        func() time.Time
}

func NewAPIKeyService(repo *repository.APIKeyRepository, redis *storage.RedisClient) *APIKeyService {
	return &APIKeyService{
		repository: repo,
		redis:      redis,
		now:        time.Now,
	}
}

type CreateAPIKey struct {
	Name           string
	Permissions    []string
	IPWhitelisting []string
	ExpiryDate     *time.Time
	Status         string
}

// Nil fields are left unchanged
type UpdateAPIKey struct {
	Name           *string
	Permissions    []string
	IPWhitelisting []string
	ExpiryDate     *time.Time
	Status         *string
}

type APIKeyAnalytics struct {
	TotalKeys              int64            `json:"totalKeys"`
	ActiveKeys             int64            `json:"activeKeys"`
	InactiveKeys           int64            `json:"inactiveKeys"`
	ExpiredKeys            int64            `json:"expiredKeys"`
	PermissionDistribution map[string]int64 `json:"permissionDistribution"`
}

// Creates a key and returns it with the plain key, which is never stored
func (s *APIKeyService) Create(ctx context.Context, in CreateAPIKey) (*models.APIKey, string, error) {
	if err := validatePermissions(in.Permissions); err != nil {
		return nil, "", err
	}

	key, err := generateKey()
	if err != nil {
		return nil, "", err
	}

	status := in.Status
	if status == "" {
		status = models.StatusEnabled
	}

	apiKey := &models.APIKey{
		Name:           in.Name,
		Permissions:    datatypes.NewJSONType(orEmptyList(in.Permissions)),
		IPWhitelisting: datatypes.NewJSONType(orEmptyList(in.IPWhitelisting)),
		ExpiryDate:     utcPtr(in.ExpiryDate),
		Status:         status,
	}
	setKey(apiKey, key)

	if err := s.repository.Create(ctx, apiKey); err != nil {
		return nil, "", fmt.Errorf("failed to create API key: %w", err)
	}

	return apiKey, key, nil
}

// Resolves a plain key to its enabled record. Returns nil when no enabled key matches.
func (s *APIKeyService) Validate(ctx context.Context, key string) (*models.APIKey, error) {
	keyHash := hashKey(key)
	cacheKey := cacheKeyFor(keyHash)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey)
		if err == nil && cached != "" {
			var apiKey models.APIKey
			if err := json.Unmarshal([]byte(cached), &apiKey); err == nil {
				return &apiKey, nil
			}
		}
	}

	apiKey, err := s.repository.FindByHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, nil
	}

	if s.redis != nil {
		if encoded, err := json.Marshal(apiKey); err == nil {
			if err := s.redis.Set(ctx, cacheKey, encoded, apiKeyCacheTTL); err != nil {
				log.WithError(err).Warn("failed to cache API key")
			}
		}
	}

	return apiKey, nil
}

// Checks that apiKey may serve a request with this method from ip
func (s *APIKeyService) Authorize(apiKey *models.APIKey, method, ip string) error {
	if apiKey.IsExpired(s.now()) {
		return fmt.Errorf("API key has expired")
	}
	if !apiKey.AllowsIP(ip) {
		return fmt.Errorf("IP address %s is not allowed for this API key", ip)
	}
	permission := PermissionFor(method)
	if !apiKey.HasPermission(permission) {
		return fmt.Errorf("API key lacks the %s permission", permission)
	}
	return nil
}

// GET and HEAD need read, DELETE needs delete, anything else needs write
func PermissionFor(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return models.PermissionRead
	case http.MethodDelete:
		return models.PermissionDelete
	default:
		return models.PermissionWrite
	}
}

func (s *APIKeyService) Get(ctx context.Context, id uint) (*models.APIKey, error) {
	apiKey, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, ErrAPIKeyNotFound
	}
	return apiKey, nil
}

func (s *APIKeyService) List(ctx context.Context) ([]models.APIKey, error) {
	return s.repository.List(ctx)
}

func (s *APIKeyService) Update(ctx context.Context, id uint, in UpdateAPIKey) (*models.APIKey, error) {
	if err := validatePermissions(in.Permissions); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Permissions != nil {
		updates["permissions"] = datatypes.NewJSONType(in.Permissions)
	}
	if in.IPWhitelisting != nil {
		updates["ip_whitelisting"] = datatypes.NewJSONType(in.IPWhitelisting)
	}
	if in.ExpiryDate != nil {
		updates["expiry_date"] = in.ExpiryDate.UTC()
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}

	if len(updates) > 0 {
		if err := s.repository.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("failed to update API key: %w", err)
		}
		s.invalidateCache(ctx, existing.KeyHash)
	}

	return s.Get(ctx, id)
}

func (s *APIKeyService) Delete(ctx context.Context, id uint) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.repository.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx, existing.KeyHash)
	return nil
}

// Issues a new secret for the key; the old one stops working immediately
func (s *APIKeyService) Regenerate(ctx context.Context, id uint) (*models.APIKey, string, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	key, err := generateKey()
	if err != nil {
		return nil, "", err
	}
	oldHash := existing.KeyHash
	setKey(existing, key)

	err = s.repository.Update(ctx, id, map[string]interface{}{
		"key_hash":   existing.KeyHash,
		"key_prefix": existing.KeyPrefix,
		"key_suffix": existing.KeySuffix,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to regenerate API key: %w", err)
	}
	s.invalidateCache(ctx, oldHash)

	return existing, key, nil
}

func (s *APIKeyService) Revoke(ctx context.Context, id uint) (*models.APIKey, error) {
	status := models.StatusDisabled
	return s.Update(ctx, id, UpdateAPIKey{Status: &status})
}

func (s *APIKeyService) Search(ctx context.Context, field, query string) ([]models.APIKey, error) {
	switch field {
	case "id", "name", "status":
	default:
		return nil, NewValidationError("The selected search by is invalid.")
	}
	return s.repository.Search(ctx, field, query)
}

func (s *APIKeyService) Filter(ctx context.Context, filter repository.APIKeyFilter) ([]models.APIKey, error) {
	return s.repository.Filter(ctx, filter)
}

func (s *APIKeyService) Analytics(ctx context.Context) (*APIKeyAnalytics, error) {
	total, err := s.repository.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.repository.CountByStatus(ctx, models.StatusEnabled)
	if err != nil {
		return nil, err
	}
	expired, err := s.repository.CountExpired(ctx, s.now())
	if err != nil {
		return nil, err
	}

	distribution := make(map[string]int64, len(models.Permissions))
	for _, p := range models.Permissions {
		n, err := s.repository.CountByPermission(ctx, p)
		if err != nil {
			return nil, err
		}
		distribution[p] = n
	}

	return &APIKeyAnalytics{
		TotalKeys:              total,
		ActiveKeys:             active,
		InactiveKeys:           total - active,
		ExpiredKeys:            expired,
		PermissionDistribution: distribution,
	}, nil
}

func (s *APIKeyService) UpdateLastUsed(ctx context.Context, id uint) {
	if err := s.repository.UpdateLastUsed(ctx, id); err != nil {
		log.WithError(err).WithField("api_key_id", id).Warn("failed to update last used")
	}
}

func (s *APIKeyService) invalidateCache(ctx context.Context, keyHash string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKeyFor(keyHash)); err != nil {
		log.WithError(err).Warn("failed to invalidate API key cache")
	}
}

func generateKey() (string, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return "am_" + base64.RawURLEncoding.EncodeToString(keyBytes), nil
}

func setKey(apiKey *models.APIKey, key string) {
	apiKey.KeyHash = hashKey(key)
	apiKey.KeyPrefix = key[:6]
	apiKey.KeySuffix = key[len(key)-6:]
}

func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func cacheKeyFor(keyHash string) string {
	return fmt.Sprintf("apikey:cache:%s", keyHash)
}

func validatePermissions(permissions []string) error {
	for _, p := range permissions {
		switch p {
		case models.PermissionRead, models.PermissionWrite, models.PermissionDelete:
		default:
			return NewValidationError(fmt.Sprintf("The selected permission %q is invalid.", p))
		}
	}
	return nil
}

func orEmptyList(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
