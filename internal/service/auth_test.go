package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuth(store *fakeStore) *service.AuthService {
	return service.NewAuthService(store, "test-secret", time.Hour, zap.NewNop()).WithBcryptCost(bcrypt.MinCost)
}

func TestAuth_CreateUserAndLogin(t *testing.T) {
	store := newFakeStore()
	auth := newAuth(store)
	ctx := context.Background()

	user, err := auth.CreateUser(ctx, &domain.NewUserRequest{Name: "Ana", Email: " Ana@Example.com ", Password: "segredo1"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("email should be normalized, got %s", user.Email)
	}
	if user.PasswordHash == "segredo1" {
		t.Error("password must be hashed")
	}

	resp, err := auth.Login(ctx, &domain.LoginRequest{Email: "ana@example.com", Password: "segredo1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := auth.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Sub != user.ID {
		t.Errorf("expected sub %s, got %s", user.ID, claims.Sub)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expected 3600s, got %d", resp.ExpiresIn)
	}
}

func TestAuth_LoginRejectsBadCredentials(t *testing.T) {
	store := newFakeStore()
	auth := newAuth(store)
	ctx := context.Background()
	if _, err := auth.CreateUser(ctx, &domain.NewUserRequest{Name: "Ana", Email: "ana@example.com", Password: "segredo1"}); err != nil {
		t.Fatal(err)
	}

	for _, req := range []domain.LoginRequest{
		{Email: "ana@example.com", Password: "errada"},
		{Email: "ninguem@example.com", Password: "segredo1"},
	} {
		_, err := auth.Login(ctx, &req)
		var ue *domain.ErrUnauthorized
		if !errors.As(err, &ue) {
			t.Errorf("expected unauthorized for %s, got %v", req.Email, err)
		}
	}
}

func TestAuth_CreateUserValidation(t *testing.T) {
	auth := newAuth(newFakeStore())
	ctx := context.Background()

	cases := map[string]domain.NewUserRequest{
		"name":     {Email: "a@b.com", Password: "123456"},
		"email":    {Name: "A", Email: "not-an-email", Password: "123456"},
		"password": {Name: "A", Email: "a@b.com", Password: "123"},
	}
	for field, req := range cases {
		_, err := auth.CreateUser(ctx, &req)
		var ve *domain.ErrValidation
		if !errors.As(err, &ve) || ve.Field != field {
			t.Errorf("expected validation error on %s, got %v", field, err)
		}
	}
}

func TestAuth_DuplicateEmail(t *testing.T) {
	auth := newAuth(newFakeStore())
	ctx := context.Background()
	req := &domain.NewUserRequest{Name: "Ana", Email: "ana@example.com", Password: "segredo1"}
	if _, err := auth.CreateUser(ctx, req); err != nil {
		t.Fatal(err)
	}
	_, err := auth.CreateUser(ctx, req)
	var ce *domain.ErrConflict
	if !errors.As(err, &ce) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestAuth_CannotDeleteSelf(t *testing.T) {
	store := newFakeStore()
	auth := newAuth(store)
	ctx := context.Background()
	ana, _ := auth.CreateUser(ctx, &domain.NewUserRequest{Name: "Ana", Email: "ana@example.com", Password: "segredo1"})
	bia, _ := auth.CreateUser(ctx, &domain.NewUserRequest{Name: "Bia", Email: "bia@example.com", Password: "segredo2"})

	err := auth.DeleteUser(ctx, ana.ID, ana.ID)
	var br *domain.ErrBusinessRule
	if !errors.As(err, &br) {
		t.Fatalf("expected business rule violation, got %v", err)
	}
	if err := auth.DeleteUser(ctx, ana.ID, bia.ID); err != nil {
		t.Fatalf("delete other user: %v", err)
	}
	users, _ := auth.ListUsers(ctx)
	if len(users) != 1 {
		t.Errorf("expected 1 user left, got %d", len(users))
	}
}

func TestAuth_EnsureAdminOnlyOnEmptyStore(t *testing.T) {
	store := newFakeStore()
	auth := newAuth(store)
	ctx := context.Background()

	if err := auth.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin123"); err != nil {
		t.Fatal(err)
	}
	if err := auth.EnsureAdmin(ctx, "Other", "other@example.com", "other123"); err != nil {
		t.Fatal(err)
	}
	users, _ := auth.ListUsers(ctx)
	if len(users) != 1 || users[0].Email != "admin@example.com" {
		t.Errorf("expected only the first admin, got %+v", users)
	}
}

func TestAuth_RejectsForeignToken(t *testing.T) {
	auth := newAuth(newFakeStore())
	other := service.NewAuthService(newFakeStore(), "another-secret", time.Hour, zap.NewNop()).WithBcryptCost(bcrypt.MinCost)
	ctx := context.Background()

	if _, err := other.CreateUser(ctx, &domain.NewUserRequest{Name: "X", Email: "x@example.com", Password: "123456"}); err != nil {
		t.Fatal(err)
	}
	resp, err := other.Login(ctx, &domain.LoginRequest{Email: "x@example.com", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.ValidateAccessToken(resp.AccessToken); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}
