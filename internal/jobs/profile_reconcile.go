// File: internal/jobs/profile_reconcile.go
package jobs

import (
	"context"
	"time"

	"dishrent_backend/internal/config"
	"dishrent_backend/internal/user"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler is the part of user.Service the job drives.
type Reconciler interface {
	Reconcile(ctx context.Context) (user.ReconcileReport, error)
}

// ProfileReconcileJob periodically heals drift between identity provider accounts and
// profiles.
type ProfileReconcileJob struct {
	reconciler    Reconciler
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
	timeout       time.Duration
}

// NewProfileReconcileJob creates a new ProfileReconcileJob. Overlapping runs are skipped.
func NewProfileReconcileJob(reconciler Reconciler, logger *zap.Logger, cfg *config.Config) *ProfileReconcileJob {
	cl := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &ProfileReconcileJob{
		reconciler:    reconciler,
		logger:        logger.Named("ProfileReconcileJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
		timeout:       10 * time.Minute,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *ProfileReconcileJob) SetupAndStart() error {
	jobSpec := j.cfg.ProfileReconcileJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Profile reconcile job schedule not defined (PROFILE_RECONCILE_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.RunOnce)
	if err != nil {
		j.logger.Error("Failed to schedule profile reconcile job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Profile reconcile job scheduled", zap.String("spec", jobSpec), zap.Int("jobID", int(jobID)))
	j.cronScheduler.Start()
	return nil
}

// RunOnce performs a single reconcile pass.
func (j *ProfileReconcileJob) RunOnce() {
	j.logger.Info("Starting profile reconcile run...")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		j.logger.Error("Profile reconcile run failed", zap.Error(err),
			zap.Int("accounts_scanned", report.AccountsScanned))
		return
	}
	j.logger.Info("Profile reconcile run completed",
		zap.Int("accounts_scanned", report.AccountsScanned),
		zap.Int("logins_synced", report.LoginsSynced),
		zap.Int("metadata_repaired", report.MetadataRepaired),
		zap.Int("repairs_skipped", report.RepairsSkipped),
		zap.Int("accounts_without_profile", report.AccountsWithoutProfile),
		zap.Int("orphan_profiles_removed", report.OrphanProfilesRemoved),
	)
}

// Stop gracefully stops the cron scheduler.
func (j *ProfileReconcileJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping profile reconcile job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Profile reconcile job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Profile reconcile job scheduler stop timed out.")
	}
}
