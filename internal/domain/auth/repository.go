package auth

import "context"

// UserRepository reads API accounts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	TouchLastLogin(ctx context.Context, id string) error
}
