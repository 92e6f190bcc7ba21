package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sweetshop/inventory-api/internal/auth"
	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/errors"
	"github.com/sweetshop/inventory-api/pkg/logging"
	"github.com/sweetshop/inventory-api/pkg/metrics"
)

// AuthApplicationService handles registration and login
type AuthApplicationService struct {
	users      domain.UserRepository
	jwtManager *auth.JWTManager
	publisher  domain.EventPublisher
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewAuthApplicationService creates a new AuthApplicationService
func NewAuthApplicationService(
	users domain.UserRepository,
	jwtManager *auth.JWTManager,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *AuthApplicationService {
	return &AuthApplicationService{
		users:      users,
		jwtManager: jwtManager,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// Register creates a new user account with the default USER role
func (s *AuthApplicationService) Register(ctx context.Context, cmd RegisterCommand) (*AuthResultDTO, error) {
	if len(cmd.Password) < domain.MinPasswordLength {
		return nil, errors.ErrValidation(domain.ErrPasswordTooWeak.Error())
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		s.logger.Error("Failed to check email", "email", email, "error", err)
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, errors.ErrConflict("user with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := domain.NewUser(cmd.Username, email, string(hash))
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "email", email, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "email", email, "error", err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if s.publisher != nil {
		event := &domain.UserRegisteredEvent{
			UserID:     user.ID.Hex(),
			Username:   user.Username,
			Email:      user.Email,
			Role:       string(user.Role),
			OccurredAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish event", "eventType", event.EventType(), "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordUserRegistered(string(user.Role))
	}

	s.logger.Info("Registered user", "id", user.ID.Hex(), "username", user.Username)

	return &AuthResultDTO{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(s.jwtManager.TokenTTL()),
		User:      *ToUserDTO(user),
	}, nil
}

// Login authenticates a user and issues an access token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthApplicationService) Login(ctx context.Context, cmd LoginCommand) (*AuthResultDTO, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to find user", "email", email, "error", err)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		s.recordLogin(false)
		return nil, errors.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		s.recordLogin(false)
		return nil, errors.ErrUnauthorized("invalid credentials")
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "email", email, "error", err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.recordLogin(true)
	s.logger.Info("User logged in", "id", user.ID.Hex(), "username", user.Username)

	return &AuthResultDTO{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(s.jwtManager.TokenTTL()),
		User:      *ToUserDTO(user),
	}, nil
}

func (s *AuthApplicationService) recordLogin(success bool) {
	if s.metrics != nil {
		s.metrics.RecordLoginAttempt(success)
	}
}
