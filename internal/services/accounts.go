package services

import (
	"context"
	"errors"
	"strings"

	"github.com/burncare/apiserver/internal/identity"
	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/internal/store"
	"github.com/burncare/apiserver/types"
	"go.uber.org/zap"
)

// AccountRepository defines persistence operations for local accounts.
type AccountRepository interface {
	List(ctx context.Context) ([]types.Account, error)
	GetByID(ctx context.Context, id int64) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (types.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	Update(ctx context.Context, account types.Account) (types.Account, error)
	Delete(ctx context.Context, id int64) error
}

// RegisterRequest is the self-registration payload. Enabled is accepted but
// ignored: every new account starts disabled.
type RegisterRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Profession string `json:"profession"`
	Role       string `json:"role,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

func (r RegisterRequest) validate() error {
	var v validator
	v.required("firstName", r.FirstName)
	v.required("lastName", r.LastName)
	v.email("email", r.Email)
	v.password("password", r.Password)
	if v.required("profession", r.Profession) {
		if _, ok := types.ParseProfession(r.Profession); !ok {
			v.add("profession", "must be one of MEDECIN, INFIRMIER, AUTRE")
		}
	}
	if r.Role != "" {
		if _, ok := types.ParseRole(r.Role); !ok {
			v.add("role", "must be one of USER, ADMIN")
		}
	}
	return v.err()
}

// LoginRequest carries the credentials checked by the identity provider.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) validate() error {
	var v validator
	v.required("email", r.Email)
	v.required("password", r.Password)
	return v.err()
}

// AccountUpdate is an administrative partial update. Nil fields are left
// untouched.
type AccountUpdate struct {
	FirstName  *string `json:"firstName,omitempty"`
	LastName   *string `json:"lastName,omitempty"`
	Email      *string `json:"email,omitempty"`
	Role       *string `json:"role,omitempty"`
	Profession *string `json:"profession,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

func (u AccountUpdate) validate() error {
	var v validator
	if u.FirstName != nil {
		v.required("firstName", *u.FirstName)
	}
	if u.LastName != nil {
		v.required("lastName", *u.LastName)
	}
	if u.Email != nil {
		v.email("email", *u.Email)
	}
	if u.Role != nil {
		if _, ok := types.ParseRole(*u.Role); !ok {
			v.add("role", "must be one of USER, ADMIN")
		}
	}
	if u.Profession != nil {
		if _, ok := types.ParseProfession(*u.Profession); !ok {
			v.add("profession", "must be one of MEDECIN, INFIRMIER, AUTRE")
		}
	}
	return v.err()
}

// RegistrationOutcome is the result of a successful registration.
type RegistrationOutcome struct {
	Account     types.Account
	Response    types.AuthResponse
	SideEffects []SideEffect
}

// ApprovalOutcome is the result of an administrative update.
type ApprovalOutcome struct {
	Account     types.Account
	SideEffects []SideEffect
}

// DeletionReport describes what an account deletion removed.
type DeletionReport struct {
	BurnoutDeleted int64
	FatigueDeleted int64
	SideEffects    []SideEffect
}

// AccountService owns the registration, approval, deletion and login
// workflows.
type AccountService struct {
	accounts AccountRepository
	burnout  BurnoutRepository
	fatigue  FatigueRepository
	idp      identity.Provider
	events   *AccountEvents
	stats    StatsInvalidator
	log      *zap.Logger
}

func NewAccountService(accounts AccountRepository, burnout BurnoutRepository, fatigue FatigueRepository, idp identity.Provider, events *AccountEvents, log *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		burnout:  burnout,
		fatigue:  fatigue,
		idp:      idp,
		events:   events,
		log:      logger.OrNop(log),
	}
}

// WithStatsInvalidator makes account writes drop cached statistics.
func (s *AccountService) WithStatsInvalidator(stats StatsInvalidator) *AccountService {
	s.stats = stats
	return s
}

func (s *AccountService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

func (s *AccountService) List(ctx context.Context) ([]types.Account, error) {
	return s.accounts.List(ctx)
}

// Register creates a disabled remote user, grants its realm roles on a best
// effort basis and stores the local mirror.
//
// If the local insert fails after the remote user was created, the remote
// user is left in place.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (RegistrationOutcome, error) {
	if err := req.validate(); err != nil {
		return RegistrationOutcome{}, err
	}
	email := strings.TrimSpace(req.Email)
	profession, _ := types.ParseProfession(req.Profession)
	role := types.RoleUser
	if req.Role != "" {
		role, _ = types.ParseRole(req.Role)
	}

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return RegistrationOutcome{}, err
	}
	if exists {
		return RegistrationOutcome{}, ErrEmailTaken
	}

	externalID, err := s.idp.CreateUser(ctx, identity.NewUser{
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Enabled:   false,
	})
	if err != nil {
		if errors.Is(err, identity.ErrConflict) {
			return RegistrationOutcome{}, ErrEmailTaken
		}
		return RegistrationOutcome{}, &UpstreamError{Op: "create user", Err: err}
	}

	grants := []string{string(profession)}
	if role == types.RoleAdmin {
		grants = append(grants, string(types.RoleAdmin))
	}
	effects := make([]SideEffect, 0, len(grants)+1)
	for _, grant := range grants {
		effect := SideEffect{Name: "assign role " + grant}
		if err := s.idp.AssignRealmRole(ctx, externalID, grant); err != nil {
			effect.Err = err
			s.log.Warn("failed to assign realm role",
				zap.String("external_id", externalID),
				zap.String("role", grant),
				zap.Error(err),
			)
		}
		effects = append(effects, effect)
	}

	account, err := s.accounts.Create(ctx, types.Account{
		ExternalID: externalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      email,
		Profession: profession,
		Role:       role,
		Enabled:    false,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return RegistrationOutcome{}, ErrEmailTaken
		}
		return RegistrationOutcome{}, err
	}

	s.invalidateStats(ctx)
	effects = append(effects, s.events.emit(ctx, types.EventAccountRegistered, account))
	return RegistrationOutcome{
		Account:     account,
		Response:    types.NewAuthResponse(account, ""),
		SideEffects: effects,
	}, nil
}

// Approve applies an administrative partial update. The local record is
// written first; the remote mirror of name, email and enabled is best
// effort.
func (s *AccountService) Approve(ctx context.Context, id int64, update AccountUpdate) (ApprovalOutcome, error) {
	if err := update.validate(); err != nil {
		return ApprovalOutcome{}, err
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return ApprovalOutcome{}, err
	}
	wasEnabled := account.Enabled

	if update.FirstName != nil {
		account.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		account.LastName = *update.LastName
	}
	if update.Email != nil {
		account.Email = strings.TrimSpace(*update.Email)
	}
	if update.Role != nil {
		account.Role, _ = types.ParseRole(*update.Role)
	}
	if update.Profession != nil {
		account.Profession, _ = types.ParseProfession(*update.Profession)
	}
	if update.Enabled != nil {
		account.Enabled = *update.Enabled
	}

	account, err = s.accounts.Update(ctx, account)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ApprovalOutcome{}, ErrEmailTaken
		}
		return ApprovalOutcome{}, err
	}

	s.invalidateStats(ctx)

	var effects []SideEffect
	remote := identity.UserUpdate{
		FirstName: update.FirstName,
		LastName:  update.LastName,
		Enabled:   update.Enabled,
	}
	if update.Email != nil {
		remote.Email = &account.Email
	}
	if !remote.Empty() {
		effect := SideEffect{Name: "mirror profile"}
		if err := s.idp.UpdateUser(ctx, account.ExternalID, remote); err != nil {
			effect.Err = err
			s.log.Warn("failed to mirror account update",
				zap.Int64("account_id", account.ID),
				zap.String("external_id", account.ExternalID),
				zap.Error(err),
			)
		}
		effects = append(effects, effect)
	}

	eventType := types.EventAccountUpdated
	if account.Enabled && !wasEnabled {
		eventType = types.EventAccountApproved
	}
	effects = append(effects, s.events.emit(ctx, eventType, account))

	return ApprovalOutcome{Account: account, SideEffects: effects}, nil
}

// Delete removes an account and everything it owns. Result and remote
// cleanup failures are logged; the local account is always removed last.
func (s *AccountService) Delete(ctx context.Context, id int64) (DeletionReport, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return DeletionReport{}, err
	}

	var report DeletionReport

	effect := SideEffect{Name: "delete burnout results"}
	if report.BurnoutDeleted, effect.Err = s.burnout.DeleteByAccount(ctx, account.ID); effect.Err != nil {
		s.log.Warn("failed to delete burnout results",
			zap.Int64("account_id", account.ID),
			zap.Error(effect.Err),
		)
	}
	report.SideEffects = append(report.SideEffects, effect)

	effect = SideEffect{Name: "delete fatigue results"}
	if report.FatigueDeleted, effect.Err = s.fatigue.DeleteByOwner(ctx, account.ExternalID); effect.Err != nil {
		s.log.Warn("failed to delete fatigue results",
			zap.String("external_id", account.ExternalID),
			zap.Error(effect.Err),
		)
	}
	report.SideEffects = append(report.SideEffects, effect)

	effect = SideEffect{Name: "delete remote user"}
	if effect.Err = s.idp.DeleteUser(ctx, account.ExternalID); effect.Err != nil {
		s.log.Warn("failed to delete remote user",
			zap.Int64("account_id", account.ID),
			zap.String("external_id", account.ExternalID),
			zap.Error(effect.Err),
		)
	}
	report.SideEffects = append(report.SideEffects, effect)

	err = s.accounts.Delete(ctx, account.ID)
	s.invalidateStats(ctx)
	if err != nil {
		return report, err
	}

	report.SideEffects = append(report.SideEffects, s.events.emit(ctx, types.EventAccountDeleted, account))
	return report, nil
}

// Login checks the local enabled flag, then delegates the password check to
// the identity provider.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (types.AuthResponse, error) {
	if err := req.validate(); err != nil {
		return types.AuthResponse{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.AuthResponse{}, ErrInvalidCredentials
		}
		return types.AuthResponse{}, err
	}
	if !account.Enabled {
		return types.AuthResponse{}, ErrAccountDisabled
	}

	token, err := s.idp.PasswordGrant(ctx, account.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			return types.AuthResponse{}, ErrInvalidCredentials
		}
		return types.AuthResponse{}, &UpstreamError{Op: "password grant", Err: err}
	}

	return types.NewAuthResponse(account, token.AccessToken), nil
}
