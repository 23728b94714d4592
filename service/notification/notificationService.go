package notificationsvc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"library/model"
	"library/repository/notifier"
	"library/util/apperr"
	"library/util/clock"
)

type Repo interface {
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	ListUndelivered(ctx context.Context, limit int) ([]model.Notification, error)
	MarkDelivered(ctx context.Context, ids []int64, at time.Time) error
}

type Service interface {
	My(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)

	// Dispatch hands undelivered events to the delivery collaborator. Rows
	// that fail to send stay undelivered and are retried next run.
	Dispatch(ctx context.Context) (int, error)
}

type service struct {
	r   Repo
	out notifier.Repo
	clk clock.Clock
}

func New(r Repo, out notifier.Repo, clk clock.Clock) Service {
	return &service{r: r, out: out, clk: clk}
}

func (s *service) My(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.r.ListForUser(ctx, userID, unreadOnly, limit)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.r.MarkRead(ctx, userID, notificationID, s.clk.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound)
		}
		return err
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.r.MarkAllRead(ctx, userID, s.clk.Now())
}

func (s *service) Dispatch(ctx context.Context) (int, error) {
	pending, err := s.r.ListUndelivered(ctx, 100)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	events := make([]notifier.Event, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, n := range pending {
		events = append(events, notifier.Event{
			UserID:  n.UserID,
			Type:    n.Type,
			Title:   n.Title,
			Message: n.Message,
		})
		ids = append(ids, n.ID)
	}
	if err := s.out.Deliver(events); err != nil {
		return 0, err
	}
	if err := s.r.MarkDelivered(ctx, ids, s.clk.Now()); err != nil {
		return 0, err
	}
	return len(ids), nil
}
