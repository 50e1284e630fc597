package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dishrent_backend/internal/shared"
)

type fakeAuthClient struct {
	claims      map[string]map[string]interface{}
	created     []string
	deleted     []string
	verifyErr   error
	createErr   error
	setClaimErr error
}

func newFakeAuthClient() *fakeAuthClient {
	return &fakeAuthClient{claims: map[string]map[string]interface{}{}}
}

func (f *fakeAuthClient) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &auth.Token{UID: "uid-for-" + idToken}, nil
}

func (f *fakeAuthClient) CreateUser(_ context.Context, _ *auth.UserToCreate) (*auth.UserRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	uid := "new-uid"
	f.created = append(f.created, uid)
	return &auth.UserRecord{UserInfo: &auth.UserInfo{UID: uid, Email: "x@example.com"}}, nil
}

func (f *fakeAuthClient) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	return &auth.UserRecord{
		UserInfo:     &auth.UserInfo{UID: uid},
		CustomClaims: f.claims[uid],
		UserMetadata: &auth.UserMetadata{LastLogInTimestamp: 1700000000000},
	}, nil
}

func (f *fakeAuthClient) GetUserByEmail(_ context.Context, email string) (*auth.UserRecord, error) {
	return &auth.UserRecord{
		UserInfo:     &auth.UserInfo{UID: "uid-of-" + email, Email: email},
		CustomClaims: f.claims["uid-of-"+email],
	}, nil
}

func (f *fakeAuthClient) SetCustomUserClaims(_ context.Context, uid string, c map[string]interface{}) error {
	if f.setClaimErr != nil {
		return f.setClaimErr
	}
	f.claims[uid] = c
	return nil
}

func (f *fakeAuthClient) DeleteUser(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeAuthClient) Users(context.Context, string) *auth.UserIterator { return nil }

func TestVerifyToken(t *testing.T) {
	fc := newFakeAuthClient()
	svc := newService(fc, zap.NewNop())

	uid, err := svc.VerifyToken(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "uid-for-abc", uid)

	_, err = svc.VerifyToken(context.Background(), "")
	assert.Error(t, err)

	fc.verifyErr = errors.New("expired")
	_, err = svc.VerifyToken(context.Background(), "abc")
	assert.Error(t, err)
}

func TestCreateAccount_SetsClaims(t *testing.T) {
	fc := newFakeAuthClient()
	svc := newService(fc, zap.NewNop())

	acct, err := svc.CreateAccount(context.Background(), shared.AccountToCreate{
		Email:    "x@example.com",
		Password: "secret1",
		Metadata: shared.Metadata{shared.MetadataRole: "staff", shared.MetadataPhone: nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-uid", acct.ID)
	assert.Equal(t, map[string]interface{}{"role": "staff"}, fc.claims["new-uid"])
	assert.Empty(t, fc.deleted)
}

func TestCreateAccount_ClaimsFailureRollsBack(t *testing.T) {
	fc := newFakeAuthClient()
	fc.setClaimErr = errors.New("quota")
	svc := newService(fc, zap.NewNop())

	_, err := svc.CreateAccount(context.Background(), shared.AccountToCreate{
		Email:    "x@example.com",
		Metadata: shared.Metadata{shared.MetadataRole: "staff"},
	})
	require.EqualError(t, err, "quota")
	assert.Equal(t, []string{"new-uid"}, fc.deleted)
}

func TestUpdateAccountMetadata_ReturnsPrevious(t *testing.T) {
	fc := newFakeAuthClient()
	fc.claims["u1"] = map[string]interface{}{"role": "staff", "phone": "555"}
	svc := newService(fc, zap.NewNop())

	prev, err := svc.UpdateAccountMetadata(context.Background(), "u1", shared.Metadata{"role": "manager", "phone": nil})
	require.NoError(t, err)
	assert.Equal(t, shared.Metadata{"role": "staff", "phone": "555"}, prev)
	assert.Equal(t, map[string]interface{}{"role": "manager"}, fc.claims["u1"])

	require.NoError(t, svc.ReplaceAccountMetadata(context.Background(), "u1", prev))
	assert.Equal(t, map[string]interface{}{"role": "staff", "phone": "555"}, fc.claims["u1"])
}

func TestGetAccount_LastLogin(t *testing.T) {
	svc := newService(newFakeAuthClient(), zap.NewNop())
	acct, err := svc.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, acct.LastLoginAt)
	assert.Equal(t, int64(1700000000), acct.LastLoginAt.Unix())
}

func TestGetAccountByEmail(t *testing.T) {
	fc := newFakeAuthClient()
	fc.claims["uid-of-boss@example.com"] = map[string]interface{}{"role": "staff"}
	svc := newService(fc, zap.NewNop())

	acct, err := svc.GetAccountByEmail(context.Background(), "boss@example.com")

	require.NoError(t, err)
	assert.Equal(t, "uid-of-boss@example.com", acct.ID)
	assert.Equal(t, "boss@example.com", acct.Email)
	assert.Equal(t, "staff", acct.Metadata["role"])
}
