package services

import (
	"context"

	"github.com/burncare/apiserver/internal/identity"
	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/types"
	"go.uber.org/zap"
)

// UpdateProfileRequest changes the caller's display name. Email, when
// present, must match the authenticated caller.
type UpdateProfileRequest struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (r UpdateProfileRequest) validate() error {
	var v validator
	v.required("firstName", r.FirstName)
	v.required("lastName", r.LastName)
	return v.err()
}

// ChangePasswordRequest sets a new password for the caller.
type ChangePasswordRequest struct {
	Email       string `json:"email,omitempty"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) validate() error {
	var v validator
	v.password("newPassword", r.NewPassword)
	return v.err()
}

// ProfileService implements self-service operations on the caller's own
// account. It never changes the enabled flag.
type ProfileService struct {
	accounts AccountRepository
	idp      identity.Provider
	log      *zap.Logger
}

func NewProfileService(accounts AccountRepository, idp identity.Provider, log *zap.Logger) *ProfileService {
	return &ProfileService{accounts: accounts, idp: idp, log: logger.OrNop(log)}
}

func (s *ProfileService) UpdateProfile(ctx context.Context, callerEmail string, req UpdateProfileRequest) (types.AuthResponse, error) {
	if err := req.validate(); err != nil {
		return types.AuthResponse{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, callerEmail)
	if err != nil {
		return types.AuthResponse{}, err
	}

	err = s.idp.UpdateUser(ctx, account.ExternalID, identity.UserUpdate{
		FirstName: &req.FirstName,
		LastName:  &req.LastName,
	})
	if err != nil {
		s.log.Warn("failed to mirror profile update",
			zap.Int64("account_id", account.ID),
			zap.String("external_id", account.ExternalID),
			zap.Error(err),
		)
	}

	account.FirstName = req.FirstName
	account.LastName = req.LastName
	account, err = s.accounts.Update(ctx, account)
	if err != nil {
		return types.AuthResponse{}, err
	}
	return types.NewAuthResponse(account, ""), nil
}

func (s *ProfileService) ChangePassword(ctx context.Context, callerEmail string, req ChangePasswordRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, callerEmail)
	if err != nil {
		return err
	}
	if err := s.idp.ResetPassword(ctx, account.ExternalID, req.NewPassword); err != nil {
		return &UpstreamError{Op: "reset password", Err: err}
	}
	return nil
}
