package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sweetshop/inventory-api/internal/auth"
	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/errors"
)

// fakeUserRepo is an in-memory UserRepository for unit tests
type fakeUserRepo struct {
	byEmail map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	r.byEmail[user.Email] = &copied
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	_, ok := r.byEmail[email]
	return ok, nil
}

func newAuthService() (*AuthApplicationService, *fakeUserRepo, *auth.JWTManager) {
	svc, repo, manager, _ := newAuthServiceWithPublisher()
	return svc, repo, manager
}

func newAuthServiceWithPublisher() (*AuthApplicationService, *fakeUserRepo, *auth.JWTManager, *fakePublisher) {
	repo := newFakeUserRepo()
	manager := auth.NewJWTManager("test-secret", "inventory-api", time.Hour)
	publisher := &fakePublisher{}
	svc := NewAuthApplicationService(repo, manager, publisher, nil, testLogger())
	return svc, repo, manager, publisher
}

func TestRegister(t *testing.T) {
	svc, repo, manager := newAuthService()

	result, err := svc.Register(context.Background(), RegisterCommand{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, "USER", result.User.Role)

	// stored password must be hashed
	stored, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)

	claims, err := manager.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestRegisterPublishesEvent(t *testing.T) {
	svc, _, _, publisher := newAuthServiceWithPublisher()

	result, err := svc.Register(context.Background(), RegisterCommand{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	require.Equal(t, []string{"sweets.users.registered"}, publisher.eventTypes())
	event, ok := publisher.events[0].(*domain.UserRegisteredEvent)
	require.True(t, ok)
	assert.Equal(t, result.User.ID, event.UserID)
	assert.Equal(t, "alice", event.Username)
	assert.Equal(t, "alice@example.com", event.Email)
	assert.Equal(t, "USER", event.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.Register(context.Background(), RegisterCommand{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterCommand{
		Username: "alice2", Email: "ALICE@example.com", Password: "secret456",
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeConflict, appErr.Code)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService()

	tests := []struct {
		name string
		cmd  RegisterCommand
	}{
		{"short password", RegisterCommand{Username: "alice", Email: "a@b.com", Password: "12345"}},
		{"short username", RegisterCommand{Username: "ab", Email: "a@b.com", Password: "secret123"}},
		{"missing email", RegisterCommand{Username: "alice", Email: "  ", Password: "secret123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.cmd)
			require.Error(t, err)

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CodeValidationError, appErr.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.Register(context.Background(), RegisterCommand{
		Username: "bob", Email: "bob@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), LoginCommand{
		Email:    "BOB@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "bob", result.User.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.Register(context.Background(), RegisterCommand{
		Username: "bob", Email: "bob@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginCommand{Email: "bob@example.com", Password: "wrong"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeUnauthorized, appErr.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.Login(context.Background(), LoginCommand{Email: "ghost@example.com", Password: "whatever"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeUnauthorized, appErr.Code)
}
