package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dishrent_backend/internal/common"
	"dishrent_backend/internal/location"
	"dishrent_backend/internal/shared"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Service is the account administration use-case layer. Every mutation touches the
// identity provider and the profile store.
type Service interface {
	CreateUser(ctx context.Context, in CreateUserPayload) (*FormattedProfile, error)
	UpdateUser(ctx context.Context, in UpdateUserPayload) (*FormattedProfile, error)
	DeleteUser(ctx context.Context, in DeleteUserPayload) error
	GetUser(ctx context.Context, id string) (*FormattedProfile, error)
	ListUsers(ctx context.Context, q ListQuery) ([]FormattedProfile, *common.Pagination, error)
	SearchUsers(ctx context.Context, q string, page common.PaginationQuery) ([]FormattedProfile, *common.Pagination, error)
	Reconcile(ctx context.Context) (ReconcileReport, error)
	BootstrapAdmin(ctx context.Context, in BootstrapAdminInput) (*FormattedProfile, error)
	SyncDirectory(ctx context.Context, batchSize int) (indexed int, err error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo      Repository
	locations location.Repository
	idp       shared.IdentityProvider
	indexer   ProfileIndexer
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	// updating holds users whose update saga is between its metadata push and its
	// profile write; the reconciler leaves their metadata alone.
	updating inflightSet
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(
	repo Repository,
	locations location.Repository,
	idp shared.IdentityProvider,
	indexer ProfileIndexer,
	logger *zap.Logger,
) *ServiceImplementation {
	if indexer == nil {
		indexer = NoopIndexer{}
	}
	return &ServiceImplementation{
		repo:      repo,
		locations: locations,
		idp:       idp,
		indexer:   indexer,
		validate:  newValidator(),
		logger:    logger.Named("user_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ServiceImplementation) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return common.NewValidationAPIError(ve)
		}
		return common.ErrValidation.WithCause(err)
	}
	return nil
}

// resolveOutletName returns nil for an empty id or an id with no matching location.
func (s *ServiceImplementation) resolveOutletName(ctx context.Context, outletID *string) (*string, error) {
	if outletID == nil || *outletID == "" {
		return nil, nil
	}
	return s.locations.FindNameByID(ctx, *outletID)
}

// CreateUser registers the account and then writes its profile. Reads that can fail run
// before the account exists so that only the profile write can leave a half-created user.
func (s *ServiceImplementation) CreateUser(ctx context.Context, in CreateUserPayload) (*FormattedProfile, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}

	phone := ptrIfNotEmpty(strings.TrimSpace(deref(in.Phone)))
	outletID := ptrIfNotEmpty(strings.TrimSpace(deref(in.OutletID)))

	outletName, err := s.resolveOutletName(ctx, outletID)
	if err != nil {
		s.logger.Error("Outlet lookup failed before account creation", zap.Error(err))
		return nil, common.ErrInternalServer.WithCause(err)
	}

	if err := s.releaseEmail(ctx, in.Email); err != nil {
		return nil, err
	}

	md := shared.Metadata{
		shared.MetadataFullName: in.FullName,
		shared.MetadataRole:     in.Role,
		shared.MetadataPhone:    nilIfEmpty(phone),
		shared.MetadataOutletID: nilIfEmpty(outletID),
	}
	acct, err := s.idp.CreateAccount(ctx, shared.AccountToCreate{
		Email:         in.Email,
		Password:      in.Password,
		EmailVerified: !in.SendInvite,
		Metadata:      md,
	})
	if err != nil {
		return nil, common.ErrUpstream.WithMessage(err.Error()).WithCause(err)
	}

	now := s.now()
	profile := &Profile{
		ID:         acct.ID,
		Email:      in.Email,
		FullName:   in.FullName,
		Role:       in.Role,
		Phone:      phone,
		OutletID:   outletID,
		OutletName: outletName,
		IsActive:   in.Active(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		s.logger.Error("Account created but profile write failed",
			zap.String("user_id", acct.ID), zap.Error(err))
		return nil, common.ErrConsistency.WithMessage(
			fmt.Sprintf("Account %s was created but its profile could not be saved.", acct.ID)).WithCause(err)
	}

	if !profile.IsActive {
		if _, err := s.idp.UpdateAccountMetadata(ctx, acct.ID, shared.Metadata{shared.MetadataIsActive: false}); err != nil {
			// The reconcile job re-pushes divergent metadata.
			s.logger.Warn("Failed to mirror inactive flag into account metadata",
				zap.String("user_id", acct.ID), zap.Error(err))
		}
	}

	formatted := FormatProfile(profile)
	s.mirror(ctx, formatted)
	s.logger.Info("User created", zap.String("user_id", acct.ID), zap.String("role", profile.Role))
	return &formatted, nil
}

// releaseEmail removes a profile left behind by a deleted account so that a new profile
// can take its email. A profile whose account still exists blocks the create. Runs
// before any account is created.
func (s *ServiceImplementation) releaseEmail(ctx context.Context, email string) error {
	stale, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, shared.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("Email lookup failed before account creation", zap.Error(err))
		return common.ErrInternalServer.WithCause(err)
	}

	_, err = s.idp.GetAccount(ctx, stale.ID)
	switch {
	case err == nil:
		return common.ErrValidation.WithMessage(fmt.Sprintf("A user with email %s already exists.", email))
	case !errors.Is(err, shared.ErrAccountNotFound):
		return common.ErrUpstream.WithMessage(err.Error()).WithCause(err)
	}

	if _, err := s.repo.Delete(ctx, stale.ID); err != nil {
		s.logger.Error("Failed to remove profile of deleted account", zap.String("user_id", stale.ID), zap.Error(err))
		return common.ErrInternalServer.WithCause(err)
	}
	if err := s.indexer.Remove(ctx, stale.ID); err != nil {
		s.logger.Warn("Failed to remove profile from directory index", zap.String("user_id", stale.ID), zap.Error(err))
	}
	s.logger.Info("Removed orphan profile holding the requested email", zap.String("user_id", stale.ID))
	return nil
}

// stagedUpdate is the validated form of UserUpdates.
type stagedUpdate struct {
	metadata shared.Metadata
	fields   map[string]any
	outlet   *string
	touchOut bool
}

func (s *ServiceImplementation) stage(u UserUpdates) (*stagedUpdate, error) {
	st := &stagedUpdate{metadata: shared.Metadata{}, fields: map[string]any{}}

	if u.FullName.Set {
		name := u.FullName.Trimmed()
		if name == "" {
			return nil, common.ErrValidation.WithMessage("The full_name field cannot be empty.")
		}
		st.metadata[shared.MetadataFullName] = name
		st.fields["full_name"] = name
	}
	if u.Role.Set {
		role := u.Role.Trimmed()
		if !common.IsKnownRole(role) {
			return nil, common.ErrValidation.WithMessage(
				fmt.Sprintf("The role field must be one of the following values: %s.", common.RolesOneOf))
		}
		st.metadata[shared.MetadataRole] = role
		st.fields["role"] = role
	}
	if u.Phone.Set {
		phone := ptrIfNotEmpty(u.Phone.Trimmed())
		st.metadata[shared.MetadataPhone] = nilIfEmpty(phone)
		st.fields["phone"] = phone
	}
	if u.IsActive.Set {
		if u.IsActive.Value == nil {
			return nil, common.ErrValidation.WithMessage("The is_active field cannot be null.")
		}
		st.metadata[shared.MetadataIsActive] = *u.IsActive.Value
		st.fields["is_active"] = *u.IsActive.Value
	}
	if u.OutletID.Set {
		st.touchOut = true
		st.outlet = ptrIfNotEmpty(u.OutletID.Trimmed())
		st.metadata[shared.MetadataOutletID] = nilIfEmpty(st.outlet)
		st.fields["outlet_id"] = st.outlet
	}
	return st, nil
}

// UpdateUser pushes the staged metadata first and then writes the profile once. If the
// profile side fails after the push, the previous metadata is restored.
func (s *ServiceImplementation) UpdateUser(ctx context.Context, in UpdateUserPayload) (*FormattedProfile, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	st, err := s.stage(in.Updates)
	if err != nil {
		return nil, err
	}

	defer s.updating.begin(in.UserID)()

	var previous shared.Metadata
	pushed := false
	if len(st.metadata) > 0 {
		previous, err = s.idp.UpdateAccountMetadata(ctx, in.UserID, st.metadata)
		if err != nil {
			return nil, common.ErrUpstream.WithMessage(err.Error()).WithCause(err)
		}
		pushed = true
	}

	if st.touchOut {
		name, err := s.resolveOutletName(ctx, st.outlet)
		if err != nil {
			return nil, s.compensate(ctx, in.UserID, pushed, previous, err)
		}
		st.fields["outlet_name"] = name
	}
	st.fields["updated_at"] = s.now()

	if err := s.repo.UpdateFields(ctx, in.UserID, st.fields); err != nil {
		return nil, s.compensate(ctx, in.UserID, pushed, previous, err)
	}

	profile, err := s.repo.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, common.ErrInternalServer.WithCause(err)
	}

	formatted := FormatProfile(profile)
	s.mirror(ctx, formatted)
	s.logger.Info("User updated", zap.String("user_id", in.UserID), zap.Int("fields", len(st.fields)-1))
	return &formatted, nil
}

// compensate restores the account metadata after a failed profile write. The restore
// runs even if the caller has gone away.
func (s *ServiceImplementation) compensate(ctx context.Context, id string, pushed bool, previous shared.Metadata, cause error) error {
	msg := fmt.Sprintf("Failed to update profile for user %s.", id)
	if errors.Is(cause, shared.ErrProfileNotFound) {
		msg = fmt.Sprintf("No profile found for user %s.", id)
	}
	if !pushed {
		return common.ErrUpdate.WithMessage(msg).WithCause(cause)
	}

	if err := s.idp.ReplaceAccountMetadata(context.WithoutCancel(ctx), id, previous); err != nil {
		s.logger.Error("Metadata restore failed, account and profile diverge",
			zap.String("user_id", id), zap.NamedError("cause", cause), zap.Error(err))
		return common.ErrConsistency.WithMessage(
			msg + " Account metadata was changed and could not be restored.").WithCause(errors.Join(cause, err))
	}
	s.logger.Warn("Profile update failed, account metadata restored", zap.String("user_id", id), zap.Error(cause))
	return common.ErrUpdate.WithMessage(msg).WithCause(cause)
}

// DeleteUser removes the account and then its profile. The profile delete is best
// effort; the reconcile job sweeps profiles whose account is gone.
func (s *ServiceImplementation) DeleteUser(ctx context.Context, in DeleteUserPayload) error {
	in.UserID = strings.TrimSpace(in.UserID)
	if err := s.validateStruct(in); err != nil {
		return err
	}

	if err := s.idp.DeleteAccount(ctx, in.UserID); err != nil {
		return common.ErrUpstream.WithMessage(err.Error()).WithCause(err)
	}

	if _, err := s.repo.Delete(ctx, in.UserID); err != nil {
		s.logger.Error("Account deleted but profile delete failed",
			zap.String("user_id", in.UserID), zap.Error(err))
	}
	if err := s.indexer.Remove(ctx, in.UserID); err != nil {
		s.logger.Warn("Failed to remove profile from directory index", zap.String("user_id", in.UserID), zap.Error(err))
	}
	s.logger.Info("User deleted", zap.String("user_id", in.UserID))
	return nil
}

func (s *ServiceImplementation) GetUser(ctx context.Context, id string) (*FormattedProfile, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrProfileNotFound) {
			return nil, common.ErrNotFound.WithMessage("User not found.")
		}
		return nil, err
	}
	formatted := FormatProfile(p)
	return &formatted, nil
}

func (s *ServiceImplementation) ListUsers(ctx context.Context, q ListQuery) ([]FormattedProfile, *common.Pagination, error) {
	if q.Role != "" && !common.IsKnownRole(q.Role) {
		return nil, nil, common.ErrValidation.WithMessage(
			fmt.Sprintf("The role filter must be one of the following values: %s.", common.RolesOneOf))
	}
	profiles, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	out := make([]FormattedProfile, len(profiles))
	for i := range profiles {
		out[i] = FormatProfile(&profiles[i])
	}
	return out, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *ServiceImplementation) SearchUsers(ctx context.Context, q string, page common.PaginationQuery) ([]FormattedProfile, *common.Pagination, error) {
	if !s.indexer.Enabled() {
		return nil, nil, common.ErrUnavailable.WithMessage("User search is not configured.")
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil, common.ErrValidation.WithMessage("The q parameter is required.")
	}
	results, total, err := s.indexer.Search(ctx, q, page.Offset(), page.Limit())
	if err != nil {
		s.logger.Error("Directory search failed", zap.Error(err))
		return nil, nil, common.ErrUnavailable.WithCause(err)
	}
	return results, common.NewPagination(total, page.Page, page.Limit()), nil
}

// SyncDirectory re-indexes every profile in batches.
func (s *ServiceImplementation) SyncDirectory(ctx context.Context, batchSize int) (int, error) {
	if !s.indexer.Enabled() {
		return 0, errors.New("directory index is not configured")
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	indexed := 0
	afterID := ""
	for batch := 1; ; batch++ {
		profiles, err := s.repo.FindBatchAfter(ctx, afterID, batchSize)
		if err != nil {
			return indexed, fmt.Errorf("failed to fetch batch %d: %w", batch, err)
		}
		if len(profiles) == 0 {
			break
		}
		docs := make([]FormattedProfile, len(profiles))
		for i := range profiles {
			docs[i] = FormatProfile(&profiles[i])
		}
		n, err := s.indexer.BulkIndex(ctx, docs)
		indexed += n
		if err != nil {
			return indexed, fmt.Errorf("batch %d: %w", batch, err)
		}
		s.logger.Info("Directory batch indexed", zap.Int("batch", batch), zap.Int("count", n))
		afterID = profiles[len(profiles)-1].ID
	}
	return indexed, nil
}

func (s *ServiceImplementation) mirror(ctx context.Context, p FormattedProfile) {
	if err := s.indexer.Index(ctx, p); err != nil {
		s.logger.Warn("Failed to mirror profile into directory index", zap.String("user_id", p.ID), zap.Error(err))
	}
}
