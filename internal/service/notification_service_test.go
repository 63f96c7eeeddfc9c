package service

import (
	"context"
	"testing"

	"github.com/MagicKrazik/ALPHA/internal/events"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/notifier"
	"github.com/MagicKrazik/ALPHA/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNotificationService(store *repository.MemoryStore, pub events.Publisher, senders map[models.NotificationChannel]Sender, push bool) *NotificationService {
	s := NewNotificationService(store, store, store, pub, senders, push, zap.NewNop())
	s.now = fixedClock
	return s
}

func countBy(ns []*models.AlertNotification, channel models.NotificationChannel, status models.NotificationStatus) int {
	n := 0
	for _, x := range ns {
		if x.Channel == channel && x.Status == status {
			n++
		}
	}
	return n
}

func TestRecipients_DeduplicatesKeepingOrder(t *testing.T) {
	tc := &models.TreatmentCase{
		ResponsibleClinician: models.Clinician{ID: "c1"},
		SecondaryClinicians:  []models.Clinician{{ID: "c2"}, {ID: "c1"}, {ID: "c3"}, {ID: "c2"}},
	}

	got := Recipients(tc)
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
}

func TestNotificationService_DispatchNonCritical(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	seedCase(store)
	seedAlert(t, store, "a1", models.AlertTypeWarning)

	created, err := newTestNotificationService(store, pub, nil, true).Dispatch(context.Background(), "a1")
	require.NoError(t, err)

	assert.Len(t, created, 2)
	assert.Equal(t, 2, countBy(created, models.ChannelInApp, models.NotificationSent))
	for _, n := range created {
		require.NotNil(t, n.SentAt)
		assert.Equal(t, testNow, *n.SentAt)
	}
	assert.Empty(t, pub.events)
}

func TestNotificationService_DispatchCritical(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	seedCase(store)
	seedAlert(t, store, "a1", models.AlertTypeCritical)
	svc := newTestNotificationService(store, pub, nil, false)

	created, err := svc.Dispatch(context.Background(), "a1")
	require.NoError(t, err)

	assert.Len(t, created, 4)
	assert.Equal(t, 2, countBy(created, models.ChannelInApp, models.NotificationSent))
	assert.Equal(t, 2, countBy(created, models.ChannelEmail, models.NotificationPending))
	assert.Equal(t, 2, pub.count(events.StreamDeliveries))

	// redelivery of alert.created does not duplicate rows or deliveries
	again, err := svc.Dispatch(context.Background(), "a1")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, store.Notifications(), 4)
	assert.Equal(t, 2, pub.count(events.StreamDeliveries))
}

func TestNotificationService_DispatchCriticalWithPush(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	seedCase(store)
	seedAlert(t, store, "a1", models.AlertTypeCritical)

	created, err := newTestNotificationService(store, pub, nil, true).Dispatch(context.Background(), "a1")
	require.NoError(t, err)

	assert.Len(t, created, 6)
	assert.Equal(t, 2, countBy(created, models.ChannelPush, models.NotificationPending))
	assert.Equal(t, 4, pub.count(events.StreamDeliveries))
}

func TestNotificationService_Deliver(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	seedCase(store)
	seedAlert(t, store, "a1", models.AlertTypeCritical)
	email := &recordingSender{}
	svc := newTestNotificationService(store, pub, map[models.NotificationChannel]Sender{
		models.ChannelEmail: email,
	}, false)
	ctx := context.Background()

	created, err := svc.Dispatch(ctx, "a1")
	require.NoError(t, err)

	for _, n := range created {
		if n.Channel == models.ChannelEmail {
			require.NoError(t, svc.Deliver(ctx, n.ID))
		}
	}

	require.Len(t, email.sent, 2)
	assert.Equal(t, "Juan Pérez", email.sent[0].Case.PatientName)
	assert.Equal(t, "a1", email.sent[0].Alert.ID)
	assert.Equal(t, 4, countBy(store.Notifications(), models.ChannelEmail, models.NotificationSent)+
		countBy(store.Notifications(), models.ChannelInApp, models.NotificationSent))

	// already sent: no second delivery
	for _, n := range created {
		require.NoError(t, svc.Deliver(ctx, n.ID))
	}
	assert.Len(t, email.sent, 2)
}

func TestNotificationService_DeliverFailureIsRecorded(t *testing.T) {
	store := repository.NewMemoryStore()
	seedCase(store)
	seedAlert(t, store, "a1", models.AlertTypeCritical)
	svc := newTestNotificationService(store, &recordingPublisher{}, map[models.NotificationChannel]Sender{
		models.ChannelEmail: &recordingSender{err: errGatewayDown},
	}, true)
	ctx := context.Background()

	created, err := svc.Dispatch(ctx, "a1")
	require.NoError(t, err)

	for _, n := range created {
		require.NoError(t, svc.Deliver(ctx, n.ID))
	}

	all := store.Notifications()
	assert.Equal(t, 2, countBy(all, models.ChannelEmail, models.NotificationFailed))
	// push has no transport configured
	assert.Equal(t, 2, countBy(all, models.ChannelPush, models.NotificationFailed))
	for _, n := range all {
		if n.Channel == models.ChannelEmail {
			require.NotNil(t, n.ErrorMessage)
			assert.Contains(t, *n.ErrorMessage, "503")
		}
	}
}

func TestNotificationService_DeliverUnknown(t *testing.T) {
	svc := newTestNotificationService(repository.NewMemoryStore(), &recordingPublisher{}, nil, false)
	assert.ErrorIs(t, svc.Deliver(context.Background(), "missing"), models.ErrNotFound)
}

// settlingSender marks the row sent while "sending", as a concurrent delivery of the same
// entry would, and then reports its own failure.
type settlingSender struct {
	store *repository.MemoryStore
}

func (s *settlingSender) Send(ctx context.Context, msg notifier.Message) error {
	if err := s.store.MarkSent(ctx, msg.Notification.ID, testNow); err != nil {
		return err
	}
	return errGatewayDown
}

func TestNotificationService_DeliverKeepsSettledRow(t *testing.T) {
	store := repository.NewMemoryStore()
	seedCase(store)
	seedAlert(t, store, "a1", models.AlertTypeCritical)
	svc := newTestNotificationService(store, &recordingPublisher{}, map[models.NotificationChannel]Sender{
		models.ChannelEmail: &settlingSender{store: store},
	}, false)
	ctx := context.Background()

	created, err := svc.Dispatch(ctx, "a1")
	require.NoError(t, err)

	for _, n := range created {
		if n.Channel == models.ChannelEmail {
			require.NoError(t, svc.Deliver(ctx, n.ID))
		}
	}

	all := store.Notifications()
	assert.Equal(t, 2, countBy(all, models.ChannelEmail, models.NotificationSent))
	assert.Zero(t, countBy(all, models.ChannelEmail, models.NotificationFailed))
	for _, n := range all {
		assert.Nil(t, n.ErrorMessage)
	}
}
