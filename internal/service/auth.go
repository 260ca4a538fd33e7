package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	minPasswordLength = 6
	bcryptCost        = 12
	tokenIssuer       = "carteira-api"
)

// AuthService orchestrates authentication and user management.
type AuthService struct {
	store     port.UserStore
	jwtSecret []byte
	accessTTL time.Duration
	cost      int
	logger    *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.UserStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		cost:      bcryptCost,
		logger:    logger,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// ============================================================
// Login: POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := normalizeEmail(req.Email)
	span.SetAttributes(attribute.String("user.email", email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if domain.IsNotFound(err) {
		s.logger.Warn("login: unknown email", zap.String("email", email))
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}
	if err != nil {
		return nil, &domain.ErrStore{Action: "carregar usuário", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", user.ID))
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	token, err := s.signAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		UserID:      user.ID,
		UserName:    user.Name,
	}, nil
}

// ============================================================
// Users
// ============================================================

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.ListUsers")
	defer span.End()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, &domain.ErrStore{Action: "listar usuários", Err: err}
	}
	return users, nil
}

func (s *AuthService) CreateUser(ctx context.Context, req *domain.NewUserRequest) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.CreateUser")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &domain.ErrValidation{Field: "email", Message: "e-mail inválido"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrValidation{
			Field:   "password",
			Message: fmt.Sprintf("senha deve ter ao menos %d caracteres", minPasswordLength),
		}
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, &domain.ErrConflict{Message: "e-mail já cadastrado"}
	} else if !domain.IsNotFound(err) {
		return nil, &domain.ErrStore{Action: "verificar e-mail", Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.InsertUser(ctx, &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, &domain.ErrStore{Action: "criar usuário", Err: err}
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("email", email))
	return user, nil
}

// DeleteUser removes targetID. An operator can never delete themselves.
func (s *AuthService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.DeleteUser")
	defer span.End()

	if actorID == targetID {
		return &domain.ErrBusinessRule{Rule: "self_delete", Message: "não é possível excluir o próprio usuário"}
	}
	if err := s.store.DeleteUser(ctx, targetID); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		return &domain.ErrStore{Action: "excluir usuário", Err: err}
	}

	s.logger.Info("user deleted", zap.String("user_id", targetID), zap.String("by", actorID))
	return nil
}

// EnsureAdmin creates the bootstrap user when the store has no users yet.
// It does nothing when email is empty.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" {
		return nil
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return &domain.ErrStore{Action: "listar usuários", Err: err}
	}
	if len(users) > 0 {
		return nil
	}
	_, err = s.CreateUser(ctx, &domain.NewUserRequest{Name: name, Email: email, Password: password})
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		return nil
	}
	return err
}

// ============================================================
// Tokens
// ============================================================

// JWTClaims are the claims of an access token.
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(userID, email string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:   userID,
		Email: email,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
