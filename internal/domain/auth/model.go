// Package auth provides authentication for the reporting API.
package auth

import "time"

// User is an API account. Accounts are provisioned out of band; the service
// only authenticates them.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// LoginRequest carries the credential pair.
type LoginRequest struct {
	Email    string
	Password string
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	AccessToken string
	ExpiresAt   time.Time
	User        UserInfo
}

// UserInfo is the public projection of a user.
type UserInfo struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
}
