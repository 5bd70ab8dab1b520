package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"mercatus/internal/core/apperror"
	"mercatus/pkg/logger"
)

// Service authenticates API accounts and issues access tokens.
type Service struct {
	userRepo   UserRepository
	jwtService *JWTService
}

// NewService creates a new auth service.
func NewService(userRepo UserRepository, jwtService *JWTService) *Service {
	return &Service{userRepo: userRepo, jwtService: jwtService}
}

// Login verifies the credential pair and issues an access token. Wrong email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if req.Password == "" {
		return nil, apperror.NewValidation("password is required").WithDetail("field", "password")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == apperror.CodeNotFound {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn(ctx, "failed login attempt", "email", email)
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		// Login still succeeds; the timestamp is advisory.
		logger.Warn(ctx, "touch last login failed", "user_id", user.ID, "error", err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User: UserInfo{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			IsAdmin:     user.IsAdmin,
		},
	}, nil
}

// Me returns the public projection of an authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
	}, nil
}
