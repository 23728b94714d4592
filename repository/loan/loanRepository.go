// repository/loan/repo.go
package loanrepo

import (
	"context"
	"database/sql"
	"time"

	"library/model"
)

type Repo interface {
	// Copies
	LockAvailableCopy(ctx context.Context, tx *sql.Tx, bookID int64) (copyID int64, err error)
	SetCopyStatus(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error

	// Loans
	Insert(ctx context.Context, tx *sql.Tx, userID, copyID int64, checkedOut, due time.Time) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error)
	CountOpenForUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
	ExtendDue(ctx context.Context, tx *sql.Tx, loanID int64, due time.Time) error
	MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, at time.Time) error

	// Listings
	ListForUser(ctx context.Context, userID int64, includeReturned bool) ([]model.Loan, error)
	Get(ctx context.Context, loanID int64) (*model.Loan, error)
	ListAll(ctx context.Context, status string, userID int64, overdueOnly bool, now time.Time, offset, limit int) ([]model.Loan, error)

	// Sweep
	MarkOverdueBatch(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Loan, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) LockAvailableCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	// SKIP LOCKED so concurrent checkouts never contend for the same copy.
	const q = `
		SELECT id
		FROM copies
		WHERE book_id = $1
		  AND status = 'AVAILABLE'
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT 1`
	var copyID int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&copyID)
	return copyID, err
}

func (r *repo) SetCopyStatus(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error {
	const q = `
		UPDATE copies
		SET status = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, copyID, status)
	return err
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, userID, copyID int64, checkedOut, due time.Time) (int64, error) {
	const q = `
		INSERT INTO loans (user_id, copy_id, status, checked_out_at, due_at, renewal_count)
		VALUES ($1,$2,'ACTIVE',$3,$4,0)
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, userID, copyID, checkedOut, due).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

const loanSelect = `
	SELECT l.id, l.user_id, l.copy_id, c.book_id, b.title, l.status,
	       l.checked_out_at, l.due_at, l.renewal_count, l.returned_at
	FROM loans l
	JOIN copies c ON c.id = l.copy_id
	JOIN books b ON b.id = c.book_id`

func scanLoan(row interface{ Scan(...any) error }) (*model.Loan, error) {
	l := &model.Loan{}
	err := row.Scan(&l.ID, &l.UserID, &l.CopyID, &l.BookID, &l.BookTitle, &l.Status,
		&l.CheckedOutAt, &l.DueAt, &l.RenewalCount, &l.ReturnedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
	// Lock only the loan row; joined tables stay unlocked.
	const q = loanSelect + `
	WHERE l.id = $1
	FOR UPDATE OF l`
	return scanLoan(tx.QueryRowContext(ctx, q, loanID))
}

func (r *repo) CountOpenForUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	const q = `
		SELECT COUNT(*)
		FROM loans
		WHERE user_id = $1
		  AND status IN ('ACTIVE','OVERDUE')`
	var n int64
	err := tx.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

func (r *repo) ExtendDue(ctx context.Context, tx *sql.Tx, loanID int64, due time.Time) error {
	const q = `
		UPDATE loans
		SET due_at = $2,
		    renewal_count = renewal_count + 1
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, loanID, due)
	return err
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, at time.Time) error {
	const q = `
		UPDATE loans
		SET status = 'RETURNED',
		    returned_at = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, loanID, at)
	return err
}

func (r *repo) ListForUser(ctx context.Context, userID int64, includeReturned bool) ([]model.Loan, error) {
	const q = loanSelect + `
	WHERE l.user_id = $1
	  AND ($2 OR l.status <> 'RETURNED')
	ORDER BY l.checked_out_at DESC, l.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, includeReturned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (r *repo) Get(ctx context.Context, loanID int64) (*model.Loan, error) {
	const q = loanSelect + `
	WHERE l.id = $1`
	return scanLoan(r.db.QueryRowContext(ctx, q, loanID))
}

func (r *repo) ListAll(ctx context.Context, status string, userID int64, overdueOnly bool, now time.Time, offset, limit int) ([]model.Loan, error) {
	const q = loanSelect + `
	WHERE ($1 = '' OR l.status = $1)
	  AND ($2 = 0 OR l.user_id = $2)
	  AND (NOT $3 OR (l.status IN ('ACTIVE','OVERDUE') AND l.due_at < $4))
	ORDER BY l.checked_out_at DESC, l.id DESC
	OFFSET $5 LIMIT $6`
	rows, err := r.db.QueryContext(ctx, q, status, userID, overdueOnly, now, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// MarkOverdueBatch flips past-due active loans to OVERDUE and returns the
// flipped rows. Already-overdue loans are untouched, which keeps the sweep
// idempotent.
func (r *repo) MarkOverdueBatch(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Loan, error) {
	const q = `
		WITH flipped AS (
			UPDATE loans
			SET status = 'OVERDUE'
			WHERE status = 'ACTIVE' AND due_at < $1
			RETURNING id, user_id, copy_id, status, checked_out_at, due_at, renewal_count, returned_at
		)
		SELECT f.id, f.user_id, f.copy_id, c.book_id, b.title, f.status,
		       f.checked_out_at, f.due_at, f.renewal_count, f.returned_at
		FROM flipped f
		JOIN copies c ON c.id = f.copy_id
		JOIN books b ON b.id = c.book_id`
	rows, err := tx.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func collectLoans(rows *sql.Rows) ([]model.Loan, error) {
	var out []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
