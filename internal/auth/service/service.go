// Package service implements registration, credential login, and access
// token issuance for the auth bounded context.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"buyerlead_backend/internal/auth/repository"
	"buyerlead_backend/internal/auth/transport"
	"buyerlead_backend/platform/apperr"
	"buyerlead_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenType = "access"
	defaultRole     = "agent"
)

type Service struct {
	repo *repository.Repository
	cfg  config.AuthServiceConfig
}

func New(repo *repository.Repository, cfg config.AuthServiceConfig) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Register creates a new agent account and signs them in.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (transport.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return transport.AuthResponse{}, err
	}

	user, err := s.repo.CreateUser(ctx, repository.CreateUserParams{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         defaultRole,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return transport.AuthResponse{}, apperr.Conflict("email already registered")
		}
		return transport.AuthResponse{}, err
	}

	return s.issueResponse(user)
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (transport.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return transport.AuthResponse{}, apperr.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return transport.AuthResponse{}, apperr.Unauthorized("invalid credentials")
	}

	return s.issueResponse(user)
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (transport.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.UserResponse{}, apperr.NotFound("user not found")
		}
		return transport.UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *Service) issueResponse(user repository.User) (transport.AuthResponse, error) {
	accessToken, err := s.signJWT(user.ID, user.Role)
	if err != nil {
		return transport.AuthResponse{}, err
	}
	return transport.AuthResponse{
		AccessToken: accessToken,
		User:        toUserResponse(user),
	}, nil
}

func (s *Service) signJWT(userID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": accessTokenType,
		"role": role,
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserResponse(user repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
