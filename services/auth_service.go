package services

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type IAuthService interface {
	Signup(fullName, email, password string) (domain.User, Token, error)
	Login(email, password string) (domain.User, Token, error)
	Check(userID string) (domain.User, error)
	UpdateProfile(ctx context.Context, userID, profilePic string) (domain.User, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
	media          contract.MediaStore
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, tokens *auth.TokenManager, media contract.MediaStore) *AuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens, media: media}
}

func (s *AuthService) Signup(fullName, email, password string) (domain.User, Token, error) {
	email = normalizeEmail(email)
	valReq := auth.RegisterRequest{
		FullName: strings.TrimSpace(fullName),
		Email:    email,
		Password: password,
	}

	// 1. Validate business rules before any expensive cryptographic operation
	if err := auth.ValidateRegister(valReq); err != nil {
		return domain.User{}, "", err
	}

	// 2. Hash here so the repository never sees plain passwords
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Will propagate ErrUserAlreadyExists if email is taken
	user, err := s.userRepository.CreateUser(valReq.FullName, email, hashedPassword)
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}

	s.log.Info("User signed up", "user_id", user.ID)
	return user, Token(token), nil
}

func (s *AuthService) Login(email, password string) (domain.User, Token, error) {
	email = normalizeEmail(email)
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Same error whatever happened, prevents user enumeration
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, Token(token), nil
}

// Check returns the user behind a valid session.
func (s *AuthService) Check(userID string) (domain.User, error) {
	return s.userRepository.GetUserByID(userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID, profilePic string) (domain.User, error) {
	if strings.TrimSpace(profilePic) == "" {
		return domain.User{}, fmt.Errorf("%w: profile pic is required", errors.ErrInvalidRequest)
	}

	url, err := s.media.Upload(ctx, profilePic)
	if err != nil {
		s.log.Error("Profile picture upload failed", "user_id", userID, "error", err)
		return domain.User{}, err
	}
	return s.userRepository.UpdateProfilePic(userID, url)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
