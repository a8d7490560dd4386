package types

import (
	"strings"
	"time"
)

// Profession is the closed set of professions an account can declare.
// Each profession maps to a realm role of the same name in the identity provider.
type Profession string

const (
	ProfessionMedecin   Profession = "MEDECIN"
	ProfessionInfirmier Profession = "INFIRMIER"
	ProfessionAutre     Profession = "AUTRE"
)

// ParseProfession normalizes and validates a profession name.
func ParseProfession(s string) (Profession, bool) {
	p := Profession(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case ProfessionMedecin, ProfessionInfirmier, ProfessionAutre:
		return p, true
	}
	return "", false
}

// Role is the application-level authorization role of an account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleAdmin:
		return r, true
	}
	return "", false
}

// Account is the local mirror of an identity-provider user.
// The identity provider owns credentials; the local record owns the
// enabled flag that gates login.
type Account struct {
	// ID is the local surrogate identifier.
	ID int64 `json:"id" db:"id"`

	// ExternalID is the identifier of the identity-provider user
	// (the "sub" claim of its tokens). Set once at creation.
	ExternalID string `json:"keycloakId" db:"external_id"`

	// FirstName is the account holder's given name.
	FirstName string `json:"firstName" db:"first_name"`

	// LastName is the account holder's family name.
	LastName string `json:"lastName" db:"last_name"`

	// Email is unique across all accounts and doubles as the
	// identity-provider username.
	Email string `json:"email" db:"email"`

	// Profession is the declared profession of the account holder.
	Profession Profession `json:"profession" db:"profession"`

	// Role is the application role of the account.
	Role Role `json:"role" db:"role"`

	// Enabled gates login. It is always false at creation and only an
	// administrative update may set it.
	Enabled bool `json:"enabled" db:"enabled"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
