package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"dishrent_backend/internal/config"
	"dishrent_backend/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubReconciler struct {
	calls  atomic.Int32
	report user.ReconcileReport
	err    error
}

func (s *stubReconciler) Reconcile(ctx context.Context) (user.ReconcileReport, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return user.ReconcileReport{}, errors.New("expected a deadline")
	}
	return s.report, s.err
}

func TestRunOnce_LogsReport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := &stubReconciler{report: user.ReconcileReport{AccountsScanned: 3, OrphanProfilesRemoved: 1}}
	job := NewProfileReconcileJob(rec, zap.New(core), &config.Config{})

	job.RunOnce()

	assert.Equal(t, int32(1), rec.calls.Load())
	completed := logs.FilterMessage("Profile reconcile run completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, int64(3), completed[0].ContextMap()["accounts_scanned"])
	assert.Equal(t, int64(1), completed[0].ContextMap()["orphan_profiles_removed"])
}

func TestRunOnce_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := &stubReconciler{err: errors.New("idp down")}
	job := NewProfileReconcileJob(rec, zap.New(core), &config.Config{})

	job.RunOnce()

	assert.Equal(t, 1, logs.FilterMessage("Profile reconcile run failed").Len())
}

func TestSetupAndStart(t *testing.T) {
	rec := &stubReconciler{}

	job := NewProfileReconcileJob(rec, zap.NewNop(), &config.Config{})
	require.NoError(t, job.SetupAndStart(), "empty schedule disables the job")

	job = NewProfileReconcileJob(rec, zap.NewNop(), &config.Config{ProfileReconcileJobSchedule: "not a schedule"})
	assert.Error(t, job.SetupAndStart())

	job = NewProfileReconcileJob(rec, zap.NewNop(), &config.Config{ProfileReconcileJobSchedule: "@every 1h"})
	require.NoError(t, job.SetupAndStart())
	job.Stop()
}
