// Package identity talks to the external identity provider that owns
// credentials and realm roles, and verifies the bearer tokens it issues.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when the provider rejects a credential.
	ErrUnauthorized = errors.New("identity: unauthorized")
	// ErrNotFound is returned when a user or role does not exist remotely.
	ErrNotFound = errors.New("identity: not found")
	// ErrConflict is returned when the provider already holds a conflicting user.
	ErrConflict = errors.New("identity: conflict")
)

// StatusError reports an unexpected provider response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("identity: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("identity: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// NewUser describes a user to create remotely. Email doubles as username.
type NewUser struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Enabled   bool
}

// UserUpdate carries the remote fields to change; nil fields are left untouched.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Enabled   *bool
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Enabled == nil
}

// Token is the result of a password grant.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

// Provider is the set of identity operations the workflows depend on.
type Provider interface {
	CreateUser(ctx context.Context, user NewUser) (string, error)
	AssignRealmRole(ctx context.Context, externalID, role string) error
	UpdateUser(ctx context.Context, externalID string, update UserUpdate) error
	ResetPassword(ctx context.Context, externalID, password string) error
	DeleteUser(ctx context.Context, externalID string) error
	PasswordGrant(ctx context.Context, username, password string) (Token, error)
}
