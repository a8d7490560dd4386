package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const defaultMinKeyRefresh = 30 * time.Second

// KeySource returns the JSON Web Key Set used to sign provider tokens.
type KeySource interface {
	KeySet(ctx context.Context) (jose.JSONWebKeySet, error)
}

// Claims is the subset of token claims the backend relies on.
type Claims struct {
	Subject    string
	Email      string
	RealmRoles []string
}

// HasRole reports whether the token carries the given realm role.
func (c Claims) HasRole(role string) bool {
	return slices.ContainsFunc(c.RealmRoles, func(r string) bool {
		return strings.EqualFold(r, role)
	})
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email             string      `json:"email,omitempty"`
	PreferredUsername string      `json:"preferred_username,omitempty"`
	RealmAccess       realmAccess `json:"realm_access"`
}

// Verifier validates RS256 bearer tokens against a cached key set.
type Verifier struct {
	source     KeySource
	issuer     string
	minRefresh time.Duration

	mu        sync.RWMutex
	keys      jose.JSONWebKeySet
	fetchedAt time.Time
}

// NewVerifier builds a verifier. An empty issuer disables the issuer check.
func NewVerifier(source KeySource, issuer string) *Verifier {
	return &Verifier{
		source:     source,
		issuer:     issuer,
		minRefresh: defaultMinKeyRefresh,
	}
}

// Verify parses and validates a raw token and returns its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return v.key(ctx, kid)
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, errors.New("identity: token has no subject")
	}

	email := claims.Email
	if email == "" && strings.Contains(claims.PreferredUsername, "@") {
		email = claims.PreferredUsername
	}
	return Claims{
		Subject:    claims.Subject,
		Email:      email,
		RealmRoles: claims.RealmAccess.Roles,
	}, nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := v.lookup(kid); ok {
		return key, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.fetchedAt.IsZero() && time.Since(v.fetchedAt) < v.minRefresh {
		if key, ok := findKey(v.keys, kid); ok {
			return key, nil
		}
		return nil, fmt.Errorf("identity: unknown signing key %q", kid)
	}

	keys, err := v.source.KeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: fetch key set: %w", err)
	}
	v.keys = keys
	v.fetchedAt = time.Now()

	if key, ok := findKey(keys, kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("identity: unknown signing key %q", kid)
}

func (v *Verifier) lookup(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return findKey(v.keys, kid)
}

func findKey(set jose.JSONWebKeySet, kid string) (*rsa.PublicKey, bool) {
	candidates := set.Keys
	if kid != "" {
		candidates = set.Key(kid)
	} else if len(candidates) != 1 {
		return nil, false
	}
	for _, jwk := range candidates {
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		if key, ok := jwk.Key.(*rsa.PublicKey); ok {
			return key, true
		}
	}
	return nil, false
}
