// File: internal/shared/identity.go
package shared

import (
	"context"
	"errors"
	"time"
)

// Metadata keys mirrored from the profile into the identity provider account.
const (
	MetadataFullName = "full_name"
	MetadataRole     = "role"
	MetadataPhone    = "phone"
	MetadataOutletID = "outlet_id"
	MetadataIsActive = "is_active"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// Metadata is the per-account key/value bag kept by the identity provider.
// A nil value in a patch removes the key.
type Metadata map[string]any

// Clone returns a shallow copy; a nil receiver yields an empty, non-nil map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m with patch applied.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := m.Clone()
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Account is the identity provider's view of a user.
type Account struct {
	ID            string
	Email         string
	EmailVerified bool
	Disabled      bool
	Metadata      Metadata
	CreatedAt     *time.Time
	LastLoginAt   *time.Time
}

// AccountToCreate carries everything needed to register a new account.
type AccountToCreate struct {
	Email         string
	Password      string
	EmailVerified bool
	Metadata      Metadata
}

// TokenVerifier validates a caller's ID token and returns the account id it was issued to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (string, error)
}

// IdentityProvider is the privileged admin surface of the external auth service.
type IdentityProvider interface {
	TokenVerifier
	CreateAccount(ctx context.Context, in AccountToCreate) (*Account, error)
	// UpdateAccountMetadata merges patch into the account's metadata and returns the
	// metadata as it was before the call, so a caller can restore it.
	UpdateAccountMetadata(ctx context.Context, id string, patch Metadata) (Metadata, error)
	ReplaceAccountMetadata(ctx context.Context, id string, md Metadata) error
	DeleteAccount(ctx context.Context, id string) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	// ListAccounts calls fn for every account; a non-nil error from fn stops the walk.
	ListAccounts(ctx context.Context, fn func(*Account) error) error
}

// ProfileRoleLookup resolves the role stored on a caller's profile.
// It returns ErrProfileNotFound when the caller has none.
type ProfileRoleLookup interface {
	RoleOf(ctx context.Context, id string) (string, error)
}
