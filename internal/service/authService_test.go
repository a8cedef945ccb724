package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aman-churiwal/api-manager/internal/repository"
)

func TestRegisterLoginAndValidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(env.db), "test-secret", 1)

	if err := auth.Register(ctx, "ops@example.com", "s3cret-pass", "Ops"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := auth.Register(ctx, "ops@example.com", "other", "Ops"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if _, err := auth.Login(ctx, "ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	session, err := auth.Login(ctx, " OPS@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := auth.ValidateToken(session.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Email != "ops@example.com" || claims.Subject != session.User.ID.String() {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	users, err := auth.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("expected one user, got %d (%v)", len(users), err)
	}
	if err := auth.DeleteUser(ctx, users[0].ID.String()); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := auth.GetUserByID(ctx, users[0].ID.String()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.NewUserRepository(env.db)

	issuer := NewAuthService(users, "secret-a", 1)
	if err := issuer.Register(ctx, "a@example.com", "password1", "A"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := issuer.Login(ctx, "a@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := NewAuthService(users, "secret-b", 1).ValidateToken(session.Token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(env.db), "test-secret", 1)

	if err := auth.Register(ctx, "b@example.com", "password1", "B"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := auth.Login(ctx, "b@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := auth.ValidateToken(session.Token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestUpdateUserFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(env.db), "test-secret", 1)

	for _, email := range []string{"first@example.com", "second@example.com"} {
		if err := auth.Register(ctx, email, "password1", "User"); err != nil {
			t.Fatalf("register %s: %v", email, err)
		}
	}
	session, err := auth.Login(ctx, "first@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id := session.User.ID.String()

	taken := "SECOND@example.com"
	if _, err := auth.UpdateUser(ctx, id, UpdateUser{Email: &taken}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	badRole := "owner"
	if _, err := auth.UpdateUser(ctx, id, UpdateUser{Role: &badRole}); !IsValidation(err) {
		t.Fatalf("expected validation error for role, got %v", err)
	}

	name, email, role, password := " Renamed ", "renamed@example.com", "developer", "new-password"
	user, err := auth.UpdateUser(ctx, id, UpdateUser{Name: &name, Email: &email, Role: &role, Password: &password})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.Name != "Renamed" || user.Email != "renamed@example.com" || user.Role != "developer" {
		t.Fatalf("unexpected user after update: %+v", user)
	}

	if _, err := auth.Login(ctx, "renamed@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
	if _, err := auth.Login(ctx, "renamed@example.com", "new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	missing := "x"
	if _, err := auth.UpdateUser(ctx, "00000000-0000-0000-0000-000000000000", UpdateUser{Name: &missing}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestInactiveUserCannotLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(env.db), "test-secret", 1)

	if err := auth.Register(ctx, "c@example.com", "password1", "C"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := auth.Login(ctx, "c@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.User.Status != "active" {
		t.Fatalf("expected new user to be active, got %q", session.User.Status)
	}
	id := session.User.ID.String()

	if _, err := auth.SetUserStatus(ctx, id, "paused"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	user, err := auth.SetUserStatus(ctx, id, "inactive")
	if err != nil || user.Status != "inactive" {
		t.Fatalf("deactivate: %+v %v", user, err)
	}

	if _, err := auth.Login(ctx, "c@example.com", "password1"); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
	if _, err := auth.Login(ctx, "c@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected wrong password to stay ErrInvalidCredentials, got %v", err)
	}

	if _, err := auth.SetUserStatus(ctx, id, "active"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := auth.Login(ctx, "c@example.com", "password1"); err != nil {
		t.Fatalf("login after activation: %v", err)
	}
}

func TestFilterUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(env.db), "test-secret", 1)

	seed := []struct{ email, name, role, status string }{
		{"alice@example.com", "Alice Admin", "admin", "active"},
		{"bob@example.com", "Bob Builder", "developer", "active"},
		{"carol@example.com", "Carol Builder", "viewer", "inactive"},
	}
	for _, u := range seed {
		if err := auth.Register(ctx, u.email, "password1", u.name); err != nil {
			t.Fatalf("register %s: %v", u.email, err)
		}
		session, err := auth.Login(ctx, u.email, "password1")
		if err != nil {
			t.Fatalf("login %s: %v", u.email, err)
		}
		role := u.role
		if _, err := auth.UpdateUser(ctx, session.User.ID.String(), UpdateUser{Role: &role}); err != nil {
			t.Fatalf("set role: %v", err)
		}
		if _, err := auth.SetUserStatus(ctx, session.User.ID.String(), u.status); err != nil {
			t.Fatalf("set status: %v", err)
		}
	}

	cases := []struct {
		name   string
		filter repository.UserFilter
		want   int
	}{
		{"no filter", repository.UserFilter{}, 3},
		{"name substring", repository.UserFilter{Name: "Builder"}, 2},
		{"email", repository.UserFilter{Email: "BOB@example.com"}, 1},
		{"status", repository.UserFilter{Status: "inactive"}, 1},
		{"role", repository.UserFilter{Role: "admin"}, 1},
		{"combined", repository.UserFilter{Name: "Builder", Status: "active"}, 1},
	}
	for _, tc := range cases {
		users, err := auth.FilterUsers(ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(users) != tc.want {
			t.Fatalf("%s: expected %d users, got %d", tc.name, tc.want, len(users))
		}
	}

	if _, err := auth.FilterUsers(ctx, repository.UserFilter{Role: "owner"}); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}
