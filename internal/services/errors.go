package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmailTaken is returned when an account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned when the credentials belong to an
	// account that has not been approved yet.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrStorageUnavailable is returned when no object storage backend is configured.
	ErrStorageUnavailable = errors.New("object storage is not configured")
)

// UpstreamError wraps an unexpected identity provider failure.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("identity provider %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Violation is a single rejected request field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a request.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// SideEffect records the outcome of a best-effort call. A nil Err means it
// succeeded.
type SideEffect struct {
	Name string
	Err  error
}

func (s SideEffect) OK() bool {
	return s.Err == nil
}

// Failed returns the side effects that did not succeed.
func Failed(effects []SideEffect) []SideEffect {
	var out []SideEffect
	for _, e := range effects {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}
