package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/repository/mocks"
	"github.com/tanishk-sarode/codechill-v2/internal/service"
)

func newAuthService(t *testing.T, userRepo repository.UserRepository) *service.AuthService {
	t.Helper()
	svc, err := service.NewAuthService(userRepo, "test-secret", 1)
	require.NoError(t, err)
	return svc
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	_, err := service.NewAuthService(new(mocks.UserRepository), "", 24)
	assert.Error(t, err)
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newAuthService(t, userRepo)

	userRepo.On("Save", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		passwordOK := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("password123")) == nil
		return u.Username == "alice" && u.ID != "" && passwordOK
	})).Return(nil).Once()

	user, err := svc.Register(context.Background(), "alice", "password123", "alice@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice", user.Name, "display name defaults to username")
	assert.Empty(t, user.Password, "password hash must not leave the service")
	userRepo.AssertExpectations(t)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t, new(mocks.UserRepository))

	_, err := svc.Register(context.Background(), "ab", "password123", "", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.Register(context.Background(), "alice", "short", "", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newAuthService(t, userRepo)

	userRepo.On("Save", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEntry).Once()

	_, err := svc.Register(context.Background(), "alice", "password123", "", "")
	assert.ErrorIs(t, err, service.ErrRegistrationFailed)
}

func TestLoginSuccessReturnsVerifiableToken(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newAuthService(t, userRepo)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	userRepo.On("FindByUsername", mock.Anything, "alice").Return(&domain.User{
		ID:       "user-1",
		Username: "alice",
		Password: string(hash),
	}, nil).Once()

	token, user, err := svc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, user.Password)

	sub, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newAuthService(t, userRepo)

	userRepo.On("FindByUsername", mock.Anything, "ghost").
		Return(nil, repository.ErrUserNotFound).Once()
	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	userRepo.On("FindByUsername", mock.Anything, "alice").Return(&domain.User{
		ID: "user-1", Username: "alice", Password: string(hash),
	}, nil).Once()
	_, _, err = svc.Login(context.Background(), "alice", "wrong-password")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
}

func TestVerifyTokenRejectsGarbageAndForeignSignatures(t *testing.T) {
	svc := newAuthService(t, new(mocks.UserRepository))

	_, err := svc.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)

	other, err := service.NewAuthService(new(mocks.UserRepository), "different-secret", 1)
	require.NoError(t, err)
	userRepo := new(mocks.UserRepository)
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	userRepo.On("FindByUsername", mock.Anything, "alice").Return(&domain.User{
		ID: "user-1", Username: "alice", Password: string(hash),
	}, nil).Once()
	signer := newAuthService(t, userRepo)
	token, _, err := signer.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
}

func TestGetUserClearsPassword(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newAuthService(t, userRepo)

	userRepo.On("FindByID", mock.Anything, "user-1").Return(&domain.User{
		ID: "user-1", Username: "alice", Password: "some-hash",
	}, nil).Once()

	user, err := svc.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, user.Password)

	userRepo.On("FindByID", mock.Anything, "nope").Return(nil, repository.ErrUserNotFound).Once()
	_, err = svc.GetUser(context.Background(), "nope")
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}
