package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mercatus/internal/core/apperror"
)

type fakeUserRepo struct {
	users   map[string]*User
	touched []string
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NewNotFound("user", id)
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, id string) error {
	r.touched = append(r.touched, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &fakeUserRepo{users: map[string]*User{
		"u1": {ID: "u1", Email: "ana@example.com", DisplayName: "Ana",
			PasswordHash: string(hash), IsActive: true},
		"u2": {ID: "u2", Email: "off@example.com",
			PasswordHash: string(hash), IsActive: false},
	}}
	jwtSvc := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "mercatus", AccessTokenTTL: time.Hour})
	return NewService(repo, jwtSvc), repo
}

func TestLoginSuccess(t *testing.T) {
	svc, repo := newTestService(t)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Ana@Example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, []string{"u1"}, repo.touched)

	jwtSvc := NewJWTService(JWTConfig{Secret: "test-secret"})
	uc, err := jwtSvc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", uc.UserID)
	assert.Equal(t, "ana@example.com", uc.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "nope"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)

	_, wrongUser := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "s3cretpass"})
	_, wrongPass := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "wrong"})

	require.Error(t, wrongUser)
	require.Error(t, wrongPass)
	assert.Equal(t, wrongUser.Error(), wrongPass.Error())
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "off@example.com", Password: "s3cretpass"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{Secret: "different-secret"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}
