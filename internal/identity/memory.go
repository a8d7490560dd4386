package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultMemoryTokenTTL = 15 * time.Minute

// DefaultRealmRoles are the realm roles a fresh MemoryProvider knows about.
var DefaultRealmRoles = []string{"MEDECIN", "INFIRMIER", "AUTRE", "ADMIN"}

// MemoryUser is a snapshot of a user held by MemoryProvider.
type MemoryUser struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Enabled   bool
	Roles     []string
}

type memoryUser struct {
	MemoryUser
	hash []byte
}

// MemoryProvider is an in-process identity provider used for local
// development and tests. It signs RS256 tokens shaped like realm tokens.
type MemoryProvider struct {
	issuer string
	kid    string
	key    *rsa.PrivateKey
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	users map[string]*memoryUser
	roles map[string]struct{}
}

var (
	_ Provider  = (*MemoryProvider)(nil)
	_ KeySource = (*MemoryProvider)(nil)
)

// NewMemoryProvider creates a provider with a fresh signing key and the
// default realm roles.
func NewMemoryProvider(issuer string) (*MemoryProvider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("identity: generate signing key: %w", err)
	}

	roles := make(map[string]struct{}, len(DefaultRealmRoles))
	for _, role := range DefaultRealmRoles {
		roles[role] = struct{}{}
	}

	return &MemoryProvider{
		issuer: issuer,
		kid:    uuid.NewString(),
		key:    key,
		ttl:    defaultMemoryTokenTTL,
		now:    time.Now,
		users:  make(map[string]*memoryUser),
		roles:  roles,
	}, nil
}

// Issuer returns the "iss" claim written into issued tokens.
func (p *MemoryProvider) Issuer() string {
	return p.issuer
}

// Lookup returns a copy of the user with the given id.
func (p *MemoryProvider) Lookup(externalID string) (MemoryUser, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[externalID]
	if !ok {
		return MemoryUser{}, false
	}
	out := u.MemoryUser
	out.Roles = slices.Clone(u.Roles)
	return out, true
}

func (p *MemoryProvider) CreateUser(_ context.Context, user NewUser) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("identity: hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.findByUsernameLocked(user.Email) != nil {
		return "", fmt.Errorf("create user: %w", ErrConflict)
	}

	id := uuid.NewString()
	p.users[id] = &memoryUser{
		MemoryUser: MemoryUser{
			ID:        id,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Enabled:   user.Enabled,
		},
		hash: hash,
	}
	return id, nil
}

func (p *MemoryProvider) AssignRealmRole(_ context.Context, externalID, role string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.roles[role]; !ok {
		return fmt.Errorf("get role %q: %w", role, ErrNotFound)
	}
	u, ok := p.users[externalID]
	if !ok {
		return fmt.Errorf("assign role: %w", ErrNotFound)
	}
	if !slices.Contains(u.Roles, role) {
		u.Roles = append(u.Roles, role)
	}
	return nil
}

func (p *MemoryProvider) UpdateUser(_ context.Context, externalID string, update UserUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[externalID]
	if !ok {
		return fmt.Errorf("get user: %w", ErrNotFound)
	}
	if update.Email != nil {
		if other := p.findByUsernameLocked(*update.Email); other != nil && other.ID != externalID {
			return fmt.Errorf("update user: %w", ErrConflict)
		}
		u.Email = *update.Email
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.Enabled != nil {
		u.Enabled = *update.Enabled
	}
	return nil
}

func (p *MemoryProvider) ResetPassword(_ context.Context, externalID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[externalID]
	if !ok {
		return fmt.Errorf("reset password: %w", ErrNotFound)
	}
	u.hash = hash
	return nil
}

func (p *MemoryProvider) DeleteUser(_ context.Context, externalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[externalID]; !ok {
		return fmt.Errorf("delete user: %w", ErrNotFound)
	}
	delete(p.users, externalID)
	return nil
}

// PasswordGrant checks the credentials and issues a signed access token.
// A disabled user is refused with a 400 like the real token endpoint.
func (p *MemoryProvider) PasswordGrant(_ context.Context, username, password string) (Token, error) {
	p.mu.RLock()
	u := p.findByUsernameLocked(username)
	var snapshot memoryUser
	if u != nil {
		snapshot = *u
		snapshot.Roles = slices.Clone(u.Roles)
	}
	p.mu.RUnlock()

	if u == nil {
		return Token{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(snapshot.hash, []byte(password)); err != nil {
		return Token{}, ErrUnauthorized
	}
	if !snapshot.Enabled {
		return Token{}, &StatusError{
			Op:         "password grant",
			StatusCode: http.StatusBadRequest,
			Body:       `{"error":"invalid_grant","error_description":"Account disabled"}`,
		}
	}

	now := p.now()
	expiry := now.Add(p.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   snapshot.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		Email:             snapshot.Email,
		PreferredUsername: strings.ToLower(snapshot.Email),
		RealmAccess:       realmAccess{Roles: snapshot.Roles},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.kid
	signed, err := token.SignedString(p.key)
	if err != nil {
		return Token{}, fmt.Errorf("identity: sign token: %w", err)
	}

	return Token{AccessToken: signed, TokenType: "Bearer", Expiry: expiry}, nil
}

// KeySet publishes the public half of the signing key.
func (p *MemoryProvider) KeySet(context.Context) (jose.JSONWebKeySet, error) {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &p.key.PublicKey,
		KeyID:     p.kid,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}, nil
}

func (p *MemoryProvider) findByUsernameLocked(username string) *memoryUser {
	for _, u := range p.users {
		if strings.EqualFold(u.Email, username) {
			return u
		}
	}
	return nil
}
