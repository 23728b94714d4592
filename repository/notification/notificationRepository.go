// repository/notification/repo.go
package notificationrepo

import (
	"context"
	"database/sql"
	"time"

	"library/model"
)

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, n *model.Notification) error
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)

	ListUndelivered(ctx context.Context, limit int) ([]model.Notification, error)
	MarkDelivered(ctx context.Context, ids []int64, at time.Time) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	const q = `
		INSERT INTO notifications (user_id, type, title, message, is_read, created_at)
		VALUES ($1,$2,$3,$4,FALSE,$5)
		RETURNING id`
	return tx.QueryRowContext(ctx, q, n.UserID, n.Type, n.Title, n.Message, n.CreatedAt).
		Scan(&n.ID)
}

const notifCols = `id, user_id, type, title, message, is_read, created_at, read_at, delivered_at`

func (r *repo) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	const q = `
		SELECT ` + notifCols + `
		FROM notifications
		WHERE user_id = $1
		  AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, q, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repo) MarkRead(ctx context.Context, userID, notificationID int64, at time.Time) error {
	const q = `
		UPDATE notifications
		SET is_read = TRUE, read_at = $3
		WHERE id = $2 AND user_id = $1`
	res, err := r.db.ExecContext(ctx, q, userID, notificationID, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	const q = `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT is_read`
	res, err := r.db.ExecContext(ctx, q, userID, at)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *repo) ListUndelivered(ctx context.Context, limit int) ([]model.Notification, error) {
	const q = `
		SELECT ` + notifCols + `
		FROM notifications
		WHERE delivered_at IS NULL
		ORDER BY created_at, id
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repo) MarkDelivered(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `
		UPDATE notifications
		SET delivered_at = $2
		WHERE id = ANY($1)`
	_, err := r.db.ExecContext(ctx, q, ids, at)
	return err
}

func collect(rows *sql.Rows) ([]model.Notification, error) {
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &n.CreatedAt, &n.ReadAt, &n.DeliveredAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
