package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dishrent_backend/internal/config"
	"dishrent_backend/internal/location"
	"dishrent_backend/internal/platform/database"
	"dishrent_backend/internal/shared"
	"dishrent_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeIdentityProvider keeps accounts in memory. Tokens are "token-<account id>".
type fakeIdentityProvider struct {
	mu       sync.Mutex
	accounts map[string]*shared.Account
	verified int
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{accounts: map[string]*shared.Account{}}
}

func (f *fakeIdentityProvider) VerifyToken(_ context.Context, idToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified++
	id := strings.TrimPrefix(idToken, "token-")
	if _, ok := f.accounts[id]; !ok || id == idToken {
		return "", errors.New("invalid token")
	}
	return id, nil
}

func (f *fakeIdentityProvider) CreateAccount(_ context.Context, in shared.AccountToCreate) (*shared.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == in.Email {
			return nil, errors.New("A user with this email address has already been registered")
		}
	}
	acct := &shared.Account{ID: uuid.NewString(), Email: in.Email, EmailVerified: in.EmailVerified, Metadata: shared.Metadata(nil).Merge(in.Metadata)}
	f.accounts[acct.ID] = acct
	return acct, nil
}

func (f *fakeIdentityProvider) UpdateAccountMetadata(_ context.Context, id string, patch shared.Metadata) (shared.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	prev := acct.Metadata.Clone()
	acct.Metadata = prev.Merge(patch)
	return prev, nil
}

func (f *fakeIdentityProvider) ReplaceAccountMetadata(_ context.Context, id string, md shared.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	acct.Metadata = md.Clone()
	return nil
}

func (f *fakeIdentityProvider) DeleteAccount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return errors.New("User not found")
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeIdentityProvider) GetAccount(_ context.Context, id string) (*shared.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	return acct, nil
}

func (f *fakeIdentityProvider) GetAccountByEmail(_ context.Context, email string) (*shared.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, shared.ErrAccountNotFound
}

func (f *fakeIdentityProvider) ListAccounts(ctx context.Context, fn func(*shared.Account) error) error {
	f.mu.Lock()
	accts := make([]*shared.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		accts = append(accts, a)
	}
	f.mu.Unlock()
	for _, a := range accts {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

type testApp struct {
	router *gin.Engine
	idp    *fakeIdentityProvider
	db     *gorm.DB
}

func validConfig() *config.Config {
	return &config.Config{
		GinMode:                       gin.TestMode,
		DBSource:                      "sqlite",
		FirebaseServiceAccountKeyPath: "/secrets/service-account.json",
		FirebaseWebAPIKey:             "public-web-key",
		FirebaseProjectID:             "dishrent-test",
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	db, err := database.OpenSQLite(
		fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		&location.Location{}, &user.Profile{},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.Create(&location.Location{ID: "loc-1", Name: "Downtown", Slug: "downtown"}).Error)

	idp := newFakeIdentityProvider()
	logger := zap.NewNop()
	profiles := user.NewGORMRepository(db)
	locations := location.NewGORMRepository(db)
	svc := user.NewService(profiles, locations, idp, user.NoopIndexer{}, logger)

	router := NewRouter(cfg, logger,
		user.NewHandler(svc, logger),
		location.NewHandler(locations, logger),
		idp, profiles,
	)
	return &testApp{router: router, idp: idp, db: db}
}

// addStaff registers an account with a matching profile and returns its bearer token.
func (a *testApp) addStaff(t *testing.T, id, role string) string {
	t.Helper()
	a.idp.accounts[id] = &shared.Account{ID: id, Email: id + "@example.com"}
	now := time.Now().UTC()
	require.NoError(t, a.db.Create(&user.Profile{
		ID: id, Email: id + "@example.com", FullName: strings.ToUpper(id), Role: role, IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	return "token-" + id
}

type envelope struct {
	Success bool                   `json:"success"`
	User    *user.FormattedProfile `json:"user"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
}

func (a *testApp) manage(t *testing.T, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/manage-users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr, env
}

func (a *testApp) profileCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, a.db.Model(&user.Profile{}).Count(&n).Error)
	return n
}

func TestPreflight(t *testing.T) {
	a := newTestApp(t, validConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/manage-users", nil)
	req.Header.Set("Origin", "https://crm.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization, x-client-info, apikey, content-type")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	allowHeaders := strings.ToLower(rr.Header().Get("Access-Control-Allow-Headers"))
	for _, h := range []string{"authorization", "x-client-info", "apikey", "content-type"} {
		assert.Contains(t, allowHeaders, h)
	}
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestManageUsers_NoAuthorizationHeader(t *testing.T) {
	a := newTestApp(t, validConfig())

	rr, env := a.manage(t, "", `{"action":"createUser","payload":{"email":"a@b.com","full_name":"A B","role":"manager"}}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
	assert.Zero(t, a.idp.verified, "no identity provider call before the credential check")
	assert.Zero(t, a.profileCount(t))
}

func TestManageUsers_InvalidToken(t *testing.T) {
	a := newTestApp(t, validConfig())

	rr, env := a.manage(t, "garbage", `{"action":"deleteUser","payload":{"user_id":"x"}}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestManageUsers_NonAdminIsForbiddenForEveryAction(t *testing.T) {
	a := newTestApp(t, validConfig())
	token := a.addStaff(t, "mgr", "manager")
	a.addStaff(t, "victim", "staff")

	bodies := []string{
		`{"action":"createUser","payload":{"email":"new@b.com","full_name":"N","role":"staff"}}`,
		`{"action":"updateUser","payload":{"user_id":"victim","updates":{"role":"admin"}}}`,
		`{"action":"deleteUser","payload":{"user_id":"victim"}}`,
		`{"action":"bogus","payload":{}}`,
	}
	for _, body := range bodies {
		rr, env := a.manage(t, token, body)
		assert.Equal(t, http.StatusForbidden, rr.Code, body)
		assert.Equal(t, "FORBIDDEN", env.Code)
	}

	assert.Equal(t, int64(2), a.profileCount(t))
	var victim user.Profile
	require.NoError(t, a.db.First(&victim, "id = ?", "victim").Error)
	assert.Equal(t, "staff", victim.Role)
	assert.Contains(t, a.idp.accounts, "victim")
}

func TestManageUsers_CallerWithoutProfileIsForbidden(t *testing.T) {
	a := newTestApp(t, validConfig())
	a.idp.accounts["loner"] = &shared.Account{ID: "loner"}

	rr, env := a.manage(t, "token-loner", `{"action":"deleteUser","payload":{"user_id":"x"}}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)
}

func TestManageUsers_MissingConfiguration(t *testing.T) {
	cfg := validConfig()
	cfg.FirebaseWebAPIKey = ""
	a := newTestApp(t, cfg)
	token := a.addStaff(t, "boss", "admin")

	rr, env := a.manage(t, token, `{"action":"deleteUser","payload":{"user_id":"boss"}}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "CONFIGURATION_ERROR", env.Code)
	assert.Contains(t, env.Error, "FIREBASE_WEB_API_KEY")
	assert.Contains(t, a.idp.accounts, "boss")
}

func TestManageUsers_RequestErrors(t *testing.T) {
	a := newTestApp(t, validConfig())
	token := a.addStaff(t, "boss", "admin")

	rr, env := a.manage(t, token, `{"action":"promoteUser","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "UNKNOWN_ACTION", env.Code)

	rr, env = a.manage(t, token, `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "BAD_REQUEST", env.Code)

	rr, env = a.manage(t, token, `{"action":"createUser"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	rr, env = a.manage(t, token, `{"action":"updateUser","payload":{"user_id":"boss","updates":{"is_active":"yes"}}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestManageUsers_Lifecycle(t *testing.T) {
	a := newTestApp(t, validConfig())
	token := a.addStaff(t, "boss", "admin")

	// create
	rr, env := a.manage(t, token, `{"action":"createUser","payload":{
		"email":"a@b.com","password":"secret1","full_name":"A B","role":"manager","outlet_id":"loc-1","phone":""}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.True(t, env.Success)
	require.NotNil(t, env.User)
	assert.Equal(t, "loc-1", env.User.OutletID)
	assert.Equal(t, "Downtown", env.User.OutletName)
	assert.True(t, env.User.IsActive)
	assert.NotContains(t, rr.Body.String(), "secret1")
	assert.NotContains(t, rr.Body.String(), `"phone"`)
	id := env.User.ID
	assert.True(t, a.idp.accounts[id].EmailVerified)

	// duplicate email is rejected before the provider is asked
	rr, env = a.manage(t, token, `{"action":"createUser","payload":{"email":"A@b.com","full_name":"A B","role":"manager"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Contains(t, env.Error, "already exists")

	// explicit null outlet clears the cached name
	rr, env = a.manage(t, token, fmt.Sprintf(`{"action":"updateUser","payload":{"user_id":%q,"updates":{"outlet_id":null}}}`, id))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, env.User.OutletID)
	assert.Empty(t, env.User.OutletName)
	assert.Equal(t, "manager", env.User.Role)
	assert.NotContains(t, a.idp.accounts[id].Metadata, shared.MetadataOutletID)

	// update of a missing profile restores metadata and reports UpdateError
	a.idp.accounts["ghost"] = &shared.Account{ID: "ghost", Metadata: shared.Metadata{"role": "staff"}}
	rr, env = a.manage(t, token, `{"action":"updateUser","payload":{"user_id":"ghost","updates":{"role":"manager"}}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "UPDATE_ERROR", env.Code)
	assert.Equal(t, "staff", a.idp.accounts["ghost"].Metadata["role"])

	// delete
	rr, env = a.manage(t, token, fmt.Sprintf(`{"action":"deleteUser","payload":{"user_id":%q}}`, id))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, env.Success)
	assert.Nil(t, env.User)
	assert.NotContains(t, a.idp.accounts, id)
	assert.Equal(t, int64(1), a.profileCount(t))

	// a profile stranded by a failed cleanup does not block reusing the email
	now := time.Now().UTC()
	require.NoError(t, a.db.Create(&user.Profile{
		ID: "stranded", Email: "c@d.com", FullName: "C D", Role: "staff", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	rr, env = a.manage(t, token, `{"action":"createUser","payload":{"email":"c@d.com","full_name":"C D","role":"staff"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEqual(t, "stranded", env.User.ID)
	assert.Equal(t, int64(2), a.profileCount(t))

	// deleting again fails upstream
	rr, env = a.manage(t, token, fmt.Sprintf(`{"action":"deleteUser","payload":{"user_id":%q}}`, id))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "UPSTREAM_ERROR", env.Code)
}

func TestDirectoryRoutes(t *testing.T) {
	a := newTestApp(t, validConfig())
	token := a.addStaff(t, "boss", "admin")
	a.addStaff(t, "clerk", "staff")

	get := func(path, tok string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		rr := httptest.NewRecorder()
		a.router.ServeHTTP(rr, req)
		return rr
	}

	rr := get("/api/v1/users?role=staff", token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var list struct {
		Data       []user.FormattedProfile `json:"data"`
		Pagination struct {
			TotalItems int64 `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "clerk", list.Data[0].ID)
	assert.Equal(t, int64(1), list.Pagination.TotalItems)

	assert.Equal(t, http.StatusOK, get("/api/v1/users/clerk", token).Code)
	assert.Equal(t, http.StatusNotFound, get("/api/v1/users/nobody", token).Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/api/v1/users/search?q=clerk", token).Code)
	assert.Equal(t, http.StatusOK, get("/api/v1/locations", token).Code)
	assert.Equal(t, http.StatusForbidden, get("/api/v1/users", "token-clerk").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/api/v1/locations", "").Code)
}

func TestPublicRoutes(t *testing.T) {
	a := newTestApp(t, validConfig())

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/client-config", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "public-web-key")
	assert.NotContains(t, rr.Body.String(), "service-account")

	rr = httptest.NewRecorder()
	a.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	a.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"The requested endpoint does not exist.","code":"NOT_FOUND"}`, rr.Body.String())
}
