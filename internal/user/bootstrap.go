package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dishrent_backend/internal/common"
	"dishrent_backend/internal/shared"

	"go.uber.org/zap"
)

// BootstrapAdminInput names an existing account by id or email.
type BootstrapAdminInput struct {
	UserID   string
	Email    string
	FullName string
}

// BootstrapAdmin gives an existing identity provider account an active admin profile.
// A fresh deployment has no admin to call manage-users, so this runs from the CLI.
// Running it again for the same account is harmless.
func (s *ServiceImplementation) BootstrapAdmin(ctx context.Context, in BootstrapAdminInput) (*FormattedProfile, error) {
	acct, err := s.lookupAccount(ctx, strings.TrimSpace(in.UserID), strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if acct.Email == "" {
		return nil, common.ErrValidation.WithMessage(fmt.Sprintf("Account %s has no email address.", acct.ID))
	}

	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		fullName, _ = acct.Metadata[shared.MetadataFullName].(string)
	}

	now := s.now()
	profile, err := s.repo.FindByID(ctx, acct.ID)
	switch {
	case errors.Is(err, shared.ErrProfileNotFound):
		if err := s.releaseEmail(ctx, acct.Email); err != nil {
			return nil, err
		}
		if fullName == "" {
			fullName = acct.Email
		}
		profile = &Profile{ID: acct.ID, Email: strings.ToLower(acct.Email), CreatedAt: now}
	case err != nil:
		return nil, common.ErrInternalServer.WithCause(err)
	}

	if fullName != "" {
		profile.FullName = fullName
	}
	profile.Role = common.RoleAdmin
	profile.IsActive = true
	profile.UpdatedAt = now
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, common.ErrInternalServer.WithCause(err)
	}

	if err := s.idp.ReplaceAccountMetadata(ctx, acct.ID, acct.Metadata.Merge(ProfileMetadata(profile))); err != nil {
		// The profile grants access; the reconcile job re-pushes the metadata.
		s.logger.Warn("Failed to push admin metadata", zap.String("user_id", acct.ID), zap.Error(err))
	}

	formatted := FormatProfile(profile)
	s.mirror(ctx, formatted)
	s.logger.Info("Admin profile bootstrapped", zap.String("user_id", acct.ID), zap.String("email", acct.Email))
	return &formatted, nil
}

func (s *ServiceImplementation) lookupAccount(ctx context.Context, id, email string) (*shared.Account, error) {
	var (
		acct *shared.Account
		err  error
	)
	switch {
	case id != "":
		acct, err = s.idp.GetAccount(ctx, id)
	case email != "":
		acct, err = s.idp.GetAccountByEmail(ctx, email)
	default:
		return nil, common.ErrValidation.WithMessage("Either a user id or an email is required.")
	}
	if errors.Is(err, shared.ErrAccountNotFound) {
		return nil, common.ErrNotFound.WithMessage("No account matches the given user id or email.")
	}
	if err != nil {
		return nil, common.ErrUpstream.WithMessage(err.Error()).WithCause(err)
	}
	return acct, nil
}
