package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/repository"
)

var (
	// ErrUsernameTaken is returned when attempting to register a duplicate username.
	ErrUsernameTaken = errors.New("auth: username already registered")
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// UserRepository defines storage contract used by the service.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service contains registration/login logic.
type Service struct {
	users  UserRepository
	hasher Hasher
	tokens *TokenService
	logger *zap.Logger
}

// NewService builds auth Service.
func NewService(users UserRepository, hasher Hasher, tokens *TokenService, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// Tokens exposes the token service for middleware validation.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Signup registers a new operator account.
func (s *Service) Signup(ctx context.Context, username, password, role string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, errors.New("auth: username required")
	}
	if password == "" {
		return nil, errors.New("auth: password required")
	}
	if role == "" {
		role = "technician"
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login authenticates an operator and produces a JWT.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}
