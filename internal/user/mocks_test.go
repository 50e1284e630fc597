package user

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"dishrent_backend/internal/location"
	"dishrent_backend/internal/platform/database"
	"dishrent_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockIdentityProvider is a mock type for shared.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyToken(ctx context.Context, idToken string) (string, error) {
	args := m.Called(ctx, idToken)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) CreateAccount(ctx context.Context, in shared.AccountToCreate) (*shared.Account, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Account), args.Error(1)
}

func (m *MockIdentityProvider) UpdateAccountMetadata(ctx context.Context, id string, patch shared.Metadata) (shared.Metadata, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shared.Metadata), args.Error(1)
}

func (m *MockIdentityProvider) ReplaceAccountMetadata(ctx context.Context, id string, md shared.Metadata) error {
	args := m.Called(ctx, id, md)
	return args.Error(0)
}

func (m *MockIdentityProvider) DeleteAccount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIdentityProvider) GetAccount(ctx context.Context, id string) (*shared.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Account), args.Error(1)
}

func (m *MockIdentityProvider) GetAccountByEmail(ctx context.Context, email string) (*shared.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Account), args.Error(1)
}

func (m *MockIdentityProvider) ListAccounts(ctx context.Context, fn func(*shared.Account) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// recordingIndexer captures what the service mirrors.
type recordingIndexer struct {
	mu      sync.Mutex
	enabled bool
	indexed map[string]FormattedProfile
	removed []string
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{enabled: true, indexed: map[string]FormattedProfile{}}
}

func (r *recordingIndexer) Enabled() bool { return r.enabled }

func (r *recordingIndexer) Index(_ context.Context, p FormattedProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed[p.ID] = p
	return nil
}

func (r *recordingIndexer) BulkIndex(ctx context.Context, profiles []FormattedProfile) (int, error) {
	for _, p := range profiles {
		_ = r.Index(ctx, p)
	}
	return len(profiles), nil
}

func (r *recordingIndexer) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexed, id)
	r.removed = append(r.removed, id)
	return nil
}

func (r *recordingIndexer) Search(_ context.Context, q string, from, size int) ([]FormattedProfile, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FormattedProfile
	for _, p := range r.indexed {
		if p.FullName == q || p.Email == q {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(
		fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		&location.Location{}, &Profile{},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.Create(&location.Location{ID: "loc-1", Name: "Downtown", Slug: "downtown"}).Error)
	require.NoError(t, db.Create(&location.Location{ID: "loc-2", Name: "Airport Road", Slug: "airport-road"}).Error)
	return db
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
