package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dishrent_backend/internal/shared"

	"go.uber.org/zap"
)

// ReconcileReport summarises one reconcile pass.
type ReconcileReport struct {
	AccountsScanned        int
	LoginsSynced           int
	MetadataRepaired       int
	RepairsSkipped         int
	AccountsWithoutProfile int
	OrphanProfilesRemoved  int
}

// Reconcile heals drift between the identity provider and the profile store: it copies
// last login times, re-pushes metadata that disagrees with the profile, and removes
// profiles whose account no longer exists. Accounts without a profile are only logged,
// they need an operator to decide between re-creating the profile and deleting the account.
func (s *ServiceImplementation) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	startedAt := s.now()
	seen := make(map[string]struct{})

	err := s.idp.ListAccounts(ctx, func(acct *shared.Account) error {
		if acct == nil || acct.ID == "" {
			return nil
		}
		report.AccountsScanned++
		seen[acct.ID] = struct{}{}

		p, err := s.repo.FindByID(ctx, acct.ID)
		if errors.Is(err, shared.ErrProfileNotFound) {
			report.AccountsWithoutProfile++
			s.logger.Warn("Account has no profile", zap.String("user_id", acct.ID), zap.String("email", acct.Email))
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading profile %s: %w", acct.ID, err)
		}

		if acct.LastLoginAt != nil && (p.LastLoginAt == nil || acct.LastLoginAt.After(*p.LastLoginAt)) {
			if err := s.repo.UpdateLastLogin(ctx, p.ID, *acct.LastLoginAt); err != nil {
				return fmt.Errorf("syncing last login for %s: %w", p.ID, err)
			}
			report.LoginsSynced++
		}

		if metadataDiverges(acct.Metadata, p) {
			repaired, err := s.repairMetadata(ctx, p.ID, startedAt)
			switch {
			case err != nil:
				s.logger.Warn("Failed to repair account metadata", zap.String("user_id", p.ID), zap.Error(err))
			case repaired:
				report.MetadataRepaired++
			default:
				report.RepairsSkipped++
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	// Only profiles older than this pass are candidates, so a user being created right
	// now is never mistaken for an orphan.
	ids, err := s.repo.ListIDsCreatedBefore(ctx, startedAt)
	if err != nil {
		return report, fmt.Errorf("listing profile ids: %w", err)
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		// The account listing may be stale; confirm before deleting.
		if _, err := s.idp.GetAccount(ctx, id); !errors.Is(err, shared.ErrAccountNotFound) {
			continue
		}
		removed, err := s.repo.Delete(ctx, id)
		if err != nil {
			s.logger.Error("Failed to remove orphan profile", zap.String("user_id", id), zap.Error(err))
			continue
		}
		if removed {
			report.OrphanProfilesRemoved++
			s.logger.Info("Orphan profile removed", zap.String("user_id", id))
			if err := s.indexer.Remove(ctx, id); err != nil {
				s.logger.Warn("Failed to remove profile from directory index", zap.String("user_id", id), zap.Error(err))
			}
		}
	}
	return report, nil
}

// repairMetadata overwrites the account metadata with the profile's values. Both sides
// are read again first because the listing may predate an update. Users with an update
// in flight, or whose profile changed during this pass, are left for the next pass.
func (s *ServiceImplementation) repairMetadata(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	if s.updating.has(id) {
		return false, nil
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !p.UpdatedAt.Before(startedAt) {
		return false, nil
	}
	acct, err := s.idp.GetAccount(ctx, id)
	if err != nil {
		return false, err
	}
	if !metadataDiverges(acct.Metadata, p) || s.updating.has(id) {
		return false, nil
	}
	if err := s.idp.ReplaceAccountMetadata(ctx, id, acct.Metadata.Merge(ProfileMetadata(p))); err != nil {
		return false, err
	}
	return true, nil
}

// inflightSet counts concurrent operations per user id.
type inflightSet struct {
	mu  sync.Mutex
	ids map[string]int
}

// begin marks id busy and returns the function that releases it.
func (f *inflightSet) begin(id string) func() {
	f.mu.Lock()
	if f.ids == nil {
		f.ids = make(map[string]int)
	}
	f.ids[id]++
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.ids[id]--; f.ids[id] <= 0 {
			delete(f.ids, id)
		}
	}
}

func (f *inflightSet) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids[id] > 0
}
