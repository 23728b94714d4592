package notificationsvc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"library/model"
	"library/repository/notifier"
	notificationsvc "library/service/notification"
	"library/util/clock"
)

type repoMock struct {
	pending   []model.Notification
	delivered []int64
	listFn    func(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error)
}

var _ notificationsvc.Repo = (*repoMock)(nil)

func (m *repoMock) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	return m.listFn(ctx, userID, unreadOnly, limit)
}
func (m *repoMock) MarkRead(ctx context.Context, userID, notificationID int64, at time.Time) error {
	return nil
}
func (m *repoMock) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	return 0, nil
}
func (m *repoMock) ListUndelivered(ctx context.Context, limit int) ([]model.Notification, error) {
	return m.pending, nil
}
func (m *repoMock) MarkDelivered(ctx context.Context, ids []int64, at time.Time) error {
	m.delivered = ids
	return nil
}

type outMock struct {
	events []notifier.Event
	err    error
}

func (m *outMock) Deliver(events []notifier.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = events
	return nil
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestMy_LimitClamped(t *testing.T) {
	var gotLimit int
	m := &repoMock{listFn: func(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
		gotLimit = limit
		return nil, nil
	}}
	s := notificationsvc.New(m, notifier.NewHTTP(""), &clock.Fake{T: testNow})

	_, err := s.My(context.Background(), 5, false, 0)
	require.NoError(t, err)
	require.Equal(t, 20, gotLimit)

	_, err = s.My(context.Background(), 5, false, 500)
	require.NoError(t, err)
	require.Equal(t, 20, gotLimit)
}

func TestDispatch(t *testing.T) {
	m := &repoMock{pending: []model.Notification{
		{ID: 1, UserID: 5, Type: model.NotifyHoldReady, Title: "t1"},
		{ID: 2, UserID: 6, Type: model.NotifyFineCreated, Title: "t2"},
	}}
	out := &outMock{}
	s := notificationsvc.New(m, out, &clock.Fake{T: testNow})

	n, err := s.Dispatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, out.events, 2)
	require.Equal(t, []int64{1, 2}, m.delivered)
}

func TestDispatch_DeliveryFailureKeepsRows(t *testing.T) {
	m := &repoMock{pending: []model.Notification{{ID: 1, UserID: 5}}}
	out := &outMock{err: errors.New("webhook down")}
	s := notificationsvc.New(m, out, &clock.Fake{T: testNow})

	_, err := s.Dispatch(context.Background())
	require.Error(t, err)
	// Nothing marked delivered; the rows are picked up again next run.
	require.Empty(t, m.delivered)
}

func TestDispatch_NothingPending(t *testing.T) {
	s := notificationsvc.New(&repoMock{}, notifier.NewHTTP(""), &clock.Fake{T: testNow})

	n, err := s.Dispatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
