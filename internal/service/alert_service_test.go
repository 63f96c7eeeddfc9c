package service

import (
	"context"
	"testing"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAlertService(store *repository.MemoryStore, cache ActiveAlertCache) *AlertService {
	s := NewAlertService(store, cache, zap.NewNop())
	s.now = fixedClock
	return s
}

func TestAlertService_AcknowledgeThenResolve(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := newMemoryCache()
	svc := newTestAlertService(store, cache)
	seedAlert(t, store, "a1", models.AlertTypeCritical)
	ctx := context.Background()

	acked, err := svc.Acknowledge(ctx, "a1", "clin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedBy)
	assert.Equal(t, "clin-1", *acked.AcknowledgedBy)
	assert.Equal(t, testNow, *acked.AcknowledgedAt)

	_, err = svc.Acknowledge(ctx, "a1", "clin-2")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)

	resolved, err := svc.Resolve(ctx, "a1", "clin-2")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
	assert.Equal(t, "clin-1", *resolved.AcknowledgedBy)
	assert.Equal(t, "clin-2", *resolved.ResolvedBy)

	stored, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, stored.Status)

	// terminal
	_, err = svc.Dismiss(ctx, "a1", "clin-1")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	_, err = svc.Resolve(ctx, "a1", "clin-1")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)

	cached, ok, err := cache.GetActiveAlerts(ctx, "case-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, cached)
}

func TestAlertService_ResolveActiveAcknowledgesImplicitly(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestAlertService(store, nil)
	seedAlert(t, store, "a1", models.AlertTypeWarning)

	resolved, err := svc.Resolve(context.Background(), "a1", "clin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
	require.NotNil(t, resolved.AcknowledgedBy)
	assert.Equal(t, "clin-1", *resolved.AcknowledgedBy)
	assert.Equal(t, testNow, *resolved.ResolvedAt)
}

func TestAlertService_Dismiss(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestAlertService(store, nil)
	seedAlert(t, store, "a1", models.AlertTypePreventive)
	seedAlert(t, store, "a2", models.AlertTypePreventive)
	ctx := context.Background()

	dismissed, err := svc.Dismiss(ctx, "a1", "clin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusDismissed, dismissed.Status)
	assert.Equal(t, "clin-1", *dismissed.DismissedBy)
	assert.Nil(t, dismissed.AcknowledgedAt)

	_, err = svc.Acknowledge(ctx, "a2", "clin-1")
	require.NoError(t, err)
	_, err = svc.Dismiss(ctx, "a2", "clin-1")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestAlertService_Errors(t *testing.T) {
	svc := newTestAlertService(repository.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.Acknowledge(ctx, "missing", "clin-1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Acknowledge(ctx, "", "clin-1")
	assert.Error(t, err)

	_, err = svc.Acknowledge(ctx, "a1", "")
	assert.Error(t, err)

	_, err = svc.ListCaseAlerts(ctx, "case-1", "archived")
	assert.Error(t, err)
}

func TestAlertService_ListCaseAlertsUsesCache(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := newMemoryCache()
	svc := newTestAlertService(store, cache)
	seedAlert(t, store, "a1", models.AlertTypeCritical)
	ctx := context.Background()

	active, err := svc.ListCaseAlerts(ctx, "case-1", models.AlertStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 1, cache.sets)

	// a second read is served from the cache
	seedAlert(t, store, "a2", models.AlertTypeCritical)
	active, err = svc.ListCaseAlerts(ctx, "case-1", models.AlertStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	svc.RefreshActiveAlerts(ctx, "case-1")
	active, err = svc.ListCaseAlerts(ctx, "case-1", models.AlertStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := svc.ListCaseAlerts(ctx, "case-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAlertService_PurgeResolved(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestAlertService(store, nil)
	ctx := context.Background()

	seedAlert(t, store, "old", models.AlertTypeCritical)
	seedAlert(t, store, "recent", models.AlertTypeCritical)
	seedAlert(t, store, "open", models.AlertTypeCritical)

	svc.now = func() time.Time { return testNow.Add(-40 * 24 * time.Hour) }
	_, err := svc.Resolve(ctx, "old", "clin-1")
	require.NoError(t, err)
	svc.now = func() time.Time { return testNow.Add(-5 * 24 * time.Hour) }
	_, err = svc.Resolve(ctx, "recent", "clin-1")
	require.NoError(t, err)

	svc.now = fixedClock
	n, err := svc.PurgeResolved(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetAlert(ctx, "old")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetAlert(ctx, "recent")
	assert.NoError(t, err)
	_, err = store.GetAlert(ctx, "open")
	assert.NoError(t, err)
}
