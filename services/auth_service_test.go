package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestAuthService(ctrl *gomock.Controller) (*AuthService, *mocks.MockIUserRepository, *mocks.MockMediaStore, *auth.TokenManager) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockMedia := mocks.NewMockMediaStore(ctrl)
	tokens := auth.NewTokenManager("test_secret_long_enough_for_hs256", 24*time.Hour)
	return NewAuthService(log, mockRepo, tokens, mockMedia), mockRepo, mockMedia, tokens
}

func TestAuthService_Signup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, mockRepo, _, tokens := newTestAuthService(ctrl)

	t.Run("should sign up successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		email := "test@example.com"
		password := "ComplexPass123!"

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser("Alice", email, gomock.Not(password)).
			DoAndReturn(func(fullName, email, hashed string) (domain.User, error) {
				return domain.User{ID: "user-uuid", FullName: fullName, Email: email, PasswordHash: hashed}, nil
			}).
			Times(1)

		user, token, err := svc.Signup(" Alice ", " Test@Example.com ", password)

		req.NoError(err)
		req.Equal("user-uuid", user.ID)
		userID, err := tokens.Validate(token.String())
		req.NoError(err)
		req.Equal("user-uuid", userID)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, token, err := svc.Signup("Alice", "test@example.com", "simplebutlongenough")

		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		email := "duplicate@example.com"

		mockRepo.EXPECT().
			CreateUser("Alice", email, gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, _, err := svc.Signup("Alice", email, "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, mockRepo, _, _ := newTestAuthService(ctrl)

	password := "ComplexPass123!"
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	stored := domain.User{ID: "user-1", Email: "user@example.com", PasswordHash: hash}

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("user@example.com").Return(stored, nil).Times(1)

		user, token, err := svc.Login("USER@example.com", password)

		req.NoError(err)
		req.Equal("user-1", user.ID)
		req.NotEmpty(token)
	})

	t.Run("should fail with wrong password", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("user@example.com").Return(stored, nil).Times(1)

		_, token, err := svc.Login("user@example.com", "WrongPass123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
		req.Empty(token)
	})

	t.Run("should hide unknown users behind invalid credentials", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("ghost@example.com").Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, _, err := svc.Login("ghost@example.com", password)

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, mockRepo, mockMedia, _ := newTestAuthService(ctrl)
	ctx := context.Background()

	t.Run("should store the uploaded url", func(t *testing.T) {
		req := require.New(t)
		mockMedia.EXPECT().Upload(ctx, "data:image/png;base64,xxx").Return("http://media/p.png", nil).Times(1)
		mockRepo.EXPECT().UpdateProfilePic("user-1", "http://media/p.png").
			Return(domain.User{ID: "user-1", ProfilePic: "http://media/p.png"}, nil).Times(1)

		user, err := svc.UpdateProfile(ctx, "user-1", "data:image/png;base64,xxx")

		req.NoError(err)
		req.Equal("http://media/p.png", user.ProfilePic)
	})

	t.Run("should not touch the user when upload fails", func(t *testing.T) {
		req := require.New(t)
		mockMedia.EXPECT().Upload(ctx, gomock.Any()).Return("", errors.ErrUpload).Times(1)
		mockRepo.EXPECT().UpdateProfilePic(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.UpdateProfile(ctx, "user-1", "garbage")

		req.ErrorIs(err, errors.ErrUpload)
	})

	t.Run("should require a picture", func(t *testing.T) {
		req := require.New(t)

		_, err := svc.UpdateProfile(ctx, "user-1", "  ")

		req.ErrorIs(err, errors.ErrInvalidRequest)
	})
}
