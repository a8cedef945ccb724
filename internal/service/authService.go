package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "api-manager"

// AdminClaims identify an operator of the management plane
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Session is what a successful login hands back
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// UpdateUser carries the fields to change; nil fields are kept
type UpdateUser struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}

const minPasswordLength = 8

type AuthService struct {
	repo   *repository.AuthRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(repo *repository.AuthRepository, secret string, expiryHours int) *AuthService {
	return &AuthService{
		repo:   repo,
		secret: []byte(secret),
		ttl:    time.Duration(expiryHours) * time.Hour,
		now:    time.Now,
	}
}

// Creates an admin user; emails are compared case-insensitively
func (s *AuthService) Register(ctx context.Context, email, password, name string) error {
	email = normalizeEmail(email)

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
		Role:         models.RoleAdmin,
		Status:       models.UserActive,
	})
}

// Checks the credentials and issues a signed token
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	issued := s.now()
	expires := issued.Add(s.ttl)
	claims := AdminClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Parses an HS256 token issued by Login
func (s *AuthService) ValidateToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

func (s *AuthService) UpdateUser(ctx context.Context, id string, in UpdateUser) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Role != nil && !models.ValidRole(*in.Role) {
		return nil, NewValidationError("The selected role is invalid.")
	}
	if in.Password != nil && len(*in.Password) < minPasswordLength {
		return nil, NewValidationError(fmt.Sprintf("The password field must be at least %d characters.", minPasswordLength))
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		existing, err := s.repo.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, ErrUserExists
		}
		user.Email = email
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Activates or deactivates a user. Inactive users cannot log in.
func (s *AuthService) SetUserStatus(ctx context.Context, id, status string) (*models.User, error) {
	if !models.ValidUserStatus(status) {
		return nil, NewValidationError("The selected status is invalid.")
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	user.Status = status
	return user, nil
}

func (s *AuthService) FilterUsers(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	if filter.Role != "" && !models.ValidRole(filter.Role) {
		return nil, NewValidationError("The selected type is invalid.")
	}
	if filter.Status != "" && !models.ValidUserStatus(filter.Status) {
		return nil, NewValidationError("The selected status is invalid.")
	}
	filter.Name = strings.TrimSpace(filter.Name)
	filter.Email = normalizeEmail(filter.Email)
	return s.repo.Filter(ctx, filter)
}

func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
