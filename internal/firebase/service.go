package firebase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"dishrent_backend/internal/config"
	"dishrent_backend/internal/shared"
)

// authClient is the subset of *auth.Client the service uses.
type authClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
	DeleteUser(ctx context.Context, uid string) error
	Users(ctx context.Context, nextPageToken string) *auth.UserIterator
}

// FirebaseService implements shared.IdentityProvider on top of Firebase Authentication.
// Account metadata is stored as custom claims.
type FirebaseService struct {
	authClient authClient
	logger     *zap.Logger
}

var _ shared.IdentityProvider = (*FirebaseService)(nil)

// NewFirebaseService initializes the Firebase Admin SDK with the privileged service account.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return newService(client, logger), nil
}

func newService(client authClient, logger *zap.Logger) *FirebaseService {
	return &FirebaseService{authClient: client, logger: logger.Named("firebase")}
}

// VerifyToken verifies a Firebase ID token and returns its uid.
func (s *FirebaseService) VerifyToken(ctx context.Context, idToken string) (string, error) {
	if idToken == "" {
		return "", fmt.Errorf("ID token must not be empty")
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return token.UID, nil
}

// CreateAccount registers the account and stores its metadata as custom claims. Firebase
// cannot set claims in the create call itself, so a failed claims write deletes the new
// account again before reporting the error.
func (s *FirebaseService) CreateAccount(ctx context.Context, in shared.AccountToCreate) (*shared.Account, error) {
	params := (&auth.UserToCreate{}).
		UID(uuid.NewString()).
		Email(in.Email).
		EmailVerified(in.EmailVerified)
	if in.Password != "" {
		params = params.Password(in.Password)
	}

	record, err := s.authClient.CreateUser(ctx, params)
	if err != nil {
		s.logger.Warn("Firebase CreateUser failed", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}

	claims := shared.Metadata(nil).Merge(in.Metadata)
	if len(claims) > 0 {
		if err := s.authClient.SetCustomUserClaims(ctx, record.UID, claims); err != nil {
			s.logger.Error("Setting claims on new account failed, removing account", zap.String("uid", record.UID), zap.Error(err))
			if delErr := s.authClient.DeleteUser(ctx, record.UID); delErr != nil {
				s.logger.Error("Rollback of new account failed", zap.String("uid", record.UID), zap.Error(delErr))
			}
			return nil, err
		}
	}

	s.logger.Info("Firebase account created", zap.String("uid", record.UID))
	acct := toAccount(record)
	acct.Metadata = claims
	return acct, nil
}

// UpdateAccountMetadata merges patch into the existing custom claims.
func (s *FirebaseService) UpdateAccountMetadata(ctx context.Context, uid string, patch shared.Metadata) (shared.Metadata, error) {
	record, err := s.authClient.GetUser(ctx, uid)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	previous := shared.Metadata(record.CustomClaims).Clone()

	if err := s.authClient.SetCustomUserClaims(ctx, uid, previous.Merge(patch)); err != nil {
		s.logger.Warn("Firebase SetCustomUserClaims failed", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	return previous, nil
}

// ReplaceAccountMetadata overwrites the custom claims wholesale.
func (s *FirebaseService) ReplaceAccountMetadata(ctx context.Context, uid string, md shared.Metadata) error {
	if err := s.authClient.SetCustomUserClaims(ctx, uid, md.Clone()); err != nil {
		s.logger.Warn("Firebase SetCustomUserClaims failed", zap.String("uid", uid), zap.Error(err))
		return s.mapNotFound(err)
	}
	return nil
}

func (s *FirebaseService) DeleteAccount(ctx context.Context, uid string) error {
	if err := s.authClient.DeleteUser(ctx, uid); err != nil {
		s.logger.Warn("Firebase DeleteUser failed", zap.String("uid", uid), zap.Error(err))
		return err
	}
	s.logger.Info("Firebase account deleted", zap.String("uid", uid))
	return nil
}

func (s *FirebaseService) GetAccount(ctx context.Context, uid string) (*shared.Account, error) {
	record, err := s.authClient.GetUser(ctx, uid)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return toAccount(record), nil
}

func (s *FirebaseService) GetAccountByEmail(ctx context.Context, email string) (*shared.Account, error) {
	record, err := s.authClient.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return toAccount(record), nil
}

// ListAccounts walks every account page by page.
func (s *FirebaseService) ListAccounts(ctx context.Context, fn func(*shared.Account) error) error {
	iter := s.authClient.Users(ctx, "")
	for {
		record, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("listing firebase accounts: %w", err)
		}
		if err := fn(exportedToAccount(record)); err != nil {
			return err
		}
	}
}

func (s *FirebaseService) mapNotFound(err error) error {
	if auth.IsUserNotFound(err) {
		return fmt.Errorf("%w: %v", shared.ErrAccountNotFound, err)
	}
	return err
}

func exportedToAccount(r *auth.ExportedUserRecord) *shared.Account {
	if r == nil {
		return nil
	}
	return toAccount(r.UserRecord)
}

func toAccount(r *auth.UserRecord) *shared.Account {
	if r == nil {
		return nil
	}
	acct := &shared.Account{
		EmailVerified: r.EmailVerified,
		Disabled:      r.Disabled,
		Metadata:      shared.Metadata(r.CustomClaims).Clone(),
	}
	if r.UserInfo != nil {
		acct.ID = r.UID
		acct.Email = r.Email
	}
	if r.UserMetadata != nil {
		acct.CreatedAt = millisToTime(r.UserMetadata.CreationTimestamp)
		acct.LastLoginAt = millisToTime(r.UserMetadata.LastLogInTimestamp)
	}
	return acct
}

func millisToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
