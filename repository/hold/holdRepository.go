// repository/hold/repo.go
package holdrepo

import (
	"context"
	"database/sql"
	"time"

	"library/model"
)

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, at time.Time) (int64, error)
	HasActiveForUserBook(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	UserHasOpenLoanOfBook(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	CountUnreservedAvailable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)

	GetForUpdate(ctx context.Context, tx *sql.Tx, holdID int64) (*model.Hold, error)
	LockQueueHead(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Hold, error)
	HasActiveFromOthers(ctx context.Context, tx *sql.Tx, bookID, exceptUserID int64) (bool, error)

	MarkReady(ctx context.Context, tx *sql.Tx, holdID, copyID int64, pickupUntil time.Time) error
	Resolve(ctx context.Context, tx *sql.Tx, holdID int64, status model.HoldStatus, at time.Time) error
	LockExpired(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]model.Hold, error)

	ListForUser(ctx context.Context, userID int64, status string) ([]model.Hold, error)
	Get(ctx context.Context, holdID int64) (*model.Hold, error)
	ListQueue(ctx context.Context, bookID int64) ([]model.Hold, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, at time.Time) (int64, error) {
	const q = `
		INSERT INTO holds (user_id, book_id, status, created_at)
		VALUES ($1,$2,'WAITING',$3)
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, userID, bookID, at).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) HasActiveForUserBook(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM holds
			WHERE user_id = $1 AND book_id = $2 AND status IN ('WAITING','READY')
		)`
	var ok bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&ok)
	return ok, err
}

func (r *repo) UserHasOpenLoanOfBook(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM loans l
			JOIN copies c ON c.id = l.copy_id
			WHERE l.user_id = $1 AND c.book_id = $2 AND l.status IN ('ACTIVE','OVERDUE')
		)`
	var ok bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&ok)
	return ok, err
}

func (r *repo) CountUnreservedAvailable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	const q = `
		SELECT COUNT(*)
		FROM copies
		WHERE book_id = $1 AND status = 'AVAILABLE'`
	var n int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&n)
	return n, err
}

const holdSelect = `
	SELECT h.id, h.user_id, h.book_id, b.title, h.status,
	       h.created_at, h.copy_id, h.pickup_until, h.resolved_at
	FROM holds h
	JOIN books b ON b.id = h.book_id`

func scanHold(row interface{ Scan(...any) error }) (*model.Hold, error) {
	h := &model.Hold{}
	err := row.Scan(&h.ID, &h.UserID, &h.BookID, &h.BookTitle, &h.Status,
		&h.CreatedAt, &h.CopyID, &h.PickupUntil, &h.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, holdID int64) (*model.Hold, error) {
	const q = holdSelect + `
	WHERE h.id = $1
	FOR UPDATE OF h`
	return scanHold(tx.QueryRowContext(ctx, q, holdID))
}

// LockQueueHead locks the oldest WAITING hold for the book. Promotion always
// runs against this row, which serializes queue mutations per book.
func (r *repo) LockQueueHead(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Hold, error) {
	const q = holdSelect + `
	WHERE h.book_id = $1 AND h.status = 'WAITING'
	ORDER BY h.created_at, h.id
	FOR UPDATE OF h SKIP LOCKED
	LIMIT 1`
	return scanHold(tx.QueryRowContext(ctx, q, bookID))
}

func (r *repo) HasActiveFromOthers(ctx context.Context, tx *sql.Tx, bookID, exceptUserID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM holds
			WHERE book_id = $1 AND user_id <> $2 AND status IN ('WAITING','READY')
		)`
	var ok bool
	err := tx.QueryRowContext(ctx, q, bookID, exceptUserID).Scan(&ok)
	return ok, err
}

func (r *repo) MarkReady(ctx context.Context, tx *sql.Tx, holdID, copyID int64, pickupUntil time.Time) error {
	const q = `
		UPDATE holds
		SET status = 'READY', copy_id = $2, pickup_until = $3
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, holdID, copyID, pickupUntil)
	return err
}

func (r *repo) Resolve(ctx context.Context, tx *sql.Tx, holdID int64, status model.HoldStatus, at time.Time) error {
	const q = `
		UPDATE holds
		SET status = $2, resolved_at = $3
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, holdID, status, at)
	return err
}

// LockExpired locks READY holds whose pickup window has passed. Rows already
// resolved by a concurrent sweep are excluded by the status predicate, so
// re-running the sweep is a no-op.
func (r *repo) LockExpired(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]model.Hold, error) {
	const q = holdSelect + `
	WHERE h.status = 'READY' AND h.pickup_until < $1
	ORDER BY h.pickup_until
	FOR UPDATE OF h SKIP LOCKED
	LIMIT $2`
	rows, err := tx.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

func (r *repo) ListForUser(ctx context.Context, userID int64, status string) ([]model.Hold, error) {
	const q = holdSelect + `
	WHERE h.user_id = $1
	  AND ($2 = '' OR h.status = $2)
	ORDER BY h.created_at DESC, h.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

func (r *repo) Get(ctx context.Context, holdID int64) (*model.Hold, error) {
	const q = holdSelect + `
	WHERE h.id = $1`
	return scanHold(r.db.QueryRowContext(ctx, q, holdID))
}

// ListQueue returns the book's active holds in promotion order.
func (r *repo) ListQueue(ctx context.Context, bookID int64) ([]model.Hold, error) {
	const q = holdSelect + `
	WHERE h.book_id = $1 AND h.status IN ('WAITING','READY')
	ORDER BY h.created_at, h.id`
	rows, err := r.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

func collectHolds(rows *sql.Rows) ([]model.Hold, error) {
	var out []model.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}
