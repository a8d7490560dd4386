package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/burncare/apiserver/config"
	"github.com/go-jose/go-jose/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBody       = 4 << 10
)

// KeycloakClient implements Provider against the Keycloak admin REST API and
// the realm's OpenID Connect endpoints.
type KeycloakClient struct {
	baseURL string
	realm   string
	issuer  string
	login   oauth2.Config
	admin   *http.Client
	plain   *http.Client
}

var _ Provider = (*KeycloakClient)(nil)

// NewKeycloakClient builds a client for cfg. ctx scopes the admin token
// source and should outlive the client.
func NewKeycloakClient(ctx context.Context, cfg config.KeycloakConfig) (*KeycloakClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("keycloak url is required")
	}
	if strings.TrimSpace(cfg.Realm) == "" {
		return nil, errors.New("keycloak realm is required")
	}

	plain := &http.Client{Timeout: defaultHTTPTimeout}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, plain)

	adminRealm := cfg.AdminRealm
	if adminRealm == "" {
		adminRealm = cfg.Realm
	}
	adminTokenURL := tokenEndpoint(baseURL, adminRealm)

	var source oauth2.TokenSource
	if cfg.AdminClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.AdminClientID,
			ClientSecret: cfg.AdminClientSecret,
			TokenURL:     adminTokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		source = cc.TokenSource(tokenCtx)
	} else {
		if cfg.AdminUsername == "" {
			return nil, errors.New("keycloak admin credentials are required")
		}
		source = oauth2.ReuseTokenSource(nil, &passwordTokenSource{
			ctx: tokenCtx,
			conf: oauth2.Config{
				ClientID: cfg.AdminClientID,
				Endpoint: oauth2.Endpoint{TokenURL: adminTokenURL, AuthStyle: oauth2.AuthStyleInParams},
			},
			username: cfg.AdminUsername,
			password: cfg.AdminPassword,
		})
	}

	admin := oauth2.NewClient(tokenCtx, source)
	admin.Timeout = defaultHTTPTimeout

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = baseURL + "/realms/" + cfg.Realm
	}

	return &KeycloakClient{
		baseURL: baseURL,
		realm:   cfg.Realm,
		issuer:  issuer,
		login: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenEndpoint(baseURL, cfg.Realm),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		admin: admin,
		plain: plain,
	}, nil
}

// Issuer returns the expected "iss" claim of realm tokens.
func (c *KeycloakClient) Issuer() string {
	return c.issuer
}

type passwordTokenSource struct {
	ctx      context.Context
	conf     oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	Username      string                     `json:"username"`
	Email         string                     `json:"email"`
	FirstName     string                     `json:"firstName"`
	LastName      string                     `json:"lastName"`
	Enabled       bool                       `json:"enabled"`
	EmailVerified bool                       `json:"emailVerified"`
	Credentials   []credentialRepresentation `json:"credentials,omitempty"`
}

type roleRepresentation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Composite   bool   `json:"composite"`
	ClientRole  bool   `json:"clientRole"`
	ContainerID string `json:"containerId,omitempty"`
}

func (c *KeycloakClient) CreateUser(ctx context.Context, user NewUser) (string, error) {
	body := userRepresentation{
		Username:      user.Email,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Enabled:       user.Enabled,
		EmailVerified: true,
		Credentials: []credentialRepresentation{{
			Type:      "password",
			Value:     user.Password,
			Temporary: false,
		}},
	}

	resp, err := c.adminDo(ctx, "create user", http.MethodPost, c.adminURL("users"), body, http.StatusCreated)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("identity: create user: missing Location header")
	}
	id := path.Base(strings.TrimRight(location, "/"))
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("identity: create user: invalid Location %q", location)
	}
	return id, nil
}

func (c *KeycloakClient) AssignRealmRole(ctx context.Context, externalID, role string) error {
	resp, err := c.adminDo(ctx, "get role", http.MethodGet, c.adminURL("roles", role), nil, http.StatusOK)
	if err != nil {
		return err
	}
	var rep roleRepresentation
	err = json.NewDecoder(resp.Body).Decode(&rep)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("identity: decode role %q: %w", role, err)
	}

	resp, err = c.adminDo(ctx, "assign role", http.MethodPost,
		c.adminURL("users", externalID, "role-mappings", "realm"),
		[]roleRepresentation{rep},
		http.StatusNoContent, http.StatusOK)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// UpdateUser reads the remote representation, applies the non-nil fields
// and writes it back, preserving attributes this service does not manage.
func (c *KeycloakClient) UpdateUser(ctx context.Context, externalID string, update UserUpdate) error {
	if update.Empty() {
		return nil
	}

	resp, err := c.adminDo(ctx, "get user", http.MethodGet, c.adminURL("users", externalID), nil, http.StatusOK)
	if err != nil {
		return err
	}
	rep := map[string]any{}
	err = json.NewDecoder(resp.Body).Decode(&rep)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("identity: decode user: %w", err)
	}

	if update.FirstName != nil {
		rep["firstName"] = *update.FirstName
	}
	if update.LastName != nil {
		rep["lastName"] = *update.LastName
	}
	if update.Email != nil {
		rep["email"] = *update.Email
	}
	if update.Enabled != nil {
		rep["enabled"] = *update.Enabled
	}

	resp, err = c.adminDo(ctx, "update user", http.MethodPut, c.adminURL("users", externalID), rep, http.StatusNoContent, http.StatusOK)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *KeycloakClient) ResetPassword(ctx context.Context, externalID, password string) error {
	body := credentialRepresentation{Type: "password", Value: password, Temporary: false}
	resp, err := c.adminDo(ctx, "reset password", http.MethodPut,
		c.adminURL("users", externalID, "reset-password"), body, http.StatusNoContent, http.StatusOK)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *KeycloakClient) DeleteUser(ctx context.Context, externalID string) error {
	resp, err := c.adminDo(ctx, "delete user", http.MethodDelete, c.adminURL("users", externalID), nil, http.StatusNoContent, http.StatusOK)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PasswordGrant exchanges user credentials for tokens on the login client.
func (c *KeycloakClient) PasswordGrant(ctx context.Context, username, password string) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.plain)
	tok, err := c.login.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			if retrieveErr.Response.StatusCode == http.StatusUnauthorized {
				return Token{}, ErrUnauthorized
			}
			return Token{}, &StatusError{
				Op:         "password grant",
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       truncate(string(retrieveErr.Body)),
			}
		}
		return Token{}, fmt.Errorf("identity: password grant: %w", err)
	}
	return Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}, nil
}

// KeySet fetches the realm's signing keys.
func (c *KeycloakClient) KeySet(ctx context.Context) (jose.JSONWebKeySet, error) {
	certsURL := c.baseURL + "/realms/" + url.PathEscape(c.realm) + "/protocol/openid-connect/certs"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certsURL, nil)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}
	resp, err := c.plain.Do(req)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return jose.JSONWebKeySet{}, statusError("fetch certs", resp)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("identity: decode certs: %w", err)
	}
	return set, nil
}

func (c *KeycloakClient) adminURL(segments ...string) string {
	escaped := make([]string, 0, len(segments)+3)
	escaped = append(escaped, c.baseURL, "admin/realms", url.PathEscape(c.realm))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return strings.Join(escaped, "/")
}

func (c *KeycloakClient) adminDo(ctx context.Context, op, method, target string, body any, expected ...int) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("identity: %s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.admin.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: %s: %w", op, err)
	}
	for _, status := range expected {
		if resp.StatusCode == status {
			return resp, nil
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	case http.StatusConflict:
		return nil, fmt.Errorf("%s: %w", op, ErrConflict)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%s: admin %w", op, ErrUnauthorized)
	}
	return nil, statusError(op, resp)
}

func statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(data))}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		return s[:512]
	}
	return s
}

func tokenEndpoint(baseURL, realm string) string {
	return baseURL + "/realms/" + url.PathEscape(realm) + "/protocol/openid-connect/token"
}
