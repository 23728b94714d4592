// repository/stats/statsRepository.go
package statsrepo

import (
	"context"
	"database/sql"
	"time"
)

// Overview is the staff circulation dashboard payload.
type Overview struct {
	Books           int64   `json:"books"`
	Copies          int64   `json:"copies"`
	AvailableCopies int64   `json:"available_copies"`
	ActiveLoans     int64   `json:"active_loans"`
	OverdueLoans    int64   `json:"overdue_loans"`
	WaitingHolds    int64   `json:"waiting_holds"`
	ReadyHolds      int64   `json:"ready_holds"`
	ActiveMembers   int64   `json:"active_members"`
	FinesOwed       float64 `json:"fines_owed"`
	FinesCollected  float64 `json:"fines_collected"`
}

type Repo interface {
	Overview(ctx context.Context, now time.Time) (*Overview, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

// Overview runs one aggregate per table; small enough to keep as scalar
// subqueries rather than a reporting view.
func (r *repo) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	const q = `
SELECT
  (SELECT count(*) FROM books),
  (SELECT count(*) FROM copies),
  (SELECT count(*) FROM copies WHERE status = 'AVAILABLE'),
  (SELECT count(*) FROM loans  WHERE status IN ('ACTIVE','OVERDUE')),
  (SELECT count(*) FROM loans  WHERE status IN ('ACTIVE','OVERDUE') AND due_at < $1),
  (SELECT count(*) FROM holds  WHERE status = 'WAITING'),
  (SELECT count(*) FROM holds  WHERE status = 'READY'),
  (SELECT count(*) FROM users  WHERE is_active),
  (SELECT COALESCE(sum(amount - amount_paid), 0) FROM fines WHERE status = 'OUTSTANDING'),
  (SELECT COALESCE(sum(amount), 0) FROM fine_payments)`

	var o Overview
	err := r.db.QueryRowContext(ctx, q, now).Scan(
		&o.Books, &o.Copies, &o.AvailableCopies,
		&o.ActiveLoans, &o.OverdueLoans,
		&o.WaitingHolds, &o.ReadyHolds,
		&o.ActiveMembers,
		&o.FinesOwed, &o.FinesCollected,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
