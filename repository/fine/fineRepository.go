// repository/fine/repo.go
package finerepo

import (
	"context"
	"database/sql"
	"time"

	"library/model"
)

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, f *model.Fine) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error)
	ApplyPayment(ctx context.Context, tx *sql.Tx, fineID int64, amount float64, method string, at time.Time, settles bool) error
	MarkWaived(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error
	OutstandingBalance(ctx context.Context, tx *sql.Tx, userID int64) (float64, error)

	Get(ctx context.Context, fineID int64) (*model.Fine, error)
	ListForUser(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error)
	ListAll(ctx context.Context, userID int64, status string, offset, limit int) ([]model.Fine, error)
	Payments(ctx context.Context, fineID int64) ([]model.FinePayment, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, f *model.Fine) error {
	const q = `
		INSERT INTO fines (user_id, loan_id, reason, amount, amount_paid, status, created_at)
		VALUES ($1,$2,$3,$4,0,'OUTSTANDING',$5)
		RETURNING id`
	return tx.QueryRowContext(ctx, q, f.UserID, f.LoanID, f.Reason, f.Amount, f.CreatedAt).
		Scan(&f.ID)
}

const fineCols = `id, user_id, loan_id, reason, amount, amount_paid, status, created_at, settled_at`

func scanFine(row interface{ Scan(...any) error }) (*model.Fine, error) {
	f := &model.Fine{}
	err := row.Scan(&f.ID, &f.UserID, &f.LoanID, &f.Reason, &f.Amount, &f.AmountPaid,
		&f.Status, &f.CreatedAt, &f.SettledAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error) {
	const q = `
		SELECT ` + fineCols + `
		FROM fines
		WHERE id = $1
		FOR UPDATE`
	return scanFine(tx.QueryRowContext(ctx, q, fineID))
}

// ApplyPayment appends a ledger row and bumps the paid total. The fine flips
// to PAID only when settles is true; the ledger rows are never rewritten.
func (r *repo) ApplyPayment(ctx context.Context, tx *sql.Tx, fineID int64, amount float64, method string, at time.Time, settles bool) error {
	const ins = `
		INSERT INTO fine_payments (fine_id, amount, method, created_at)
		VALUES ($1,$2,$3,$4)`
	if _, err := tx.ExecContext(ctx, ins, fineID, amount, method, at); err != nil {
		return err
	}
	if settles {
		const up = `
			UPDATE fines
			SET amount_paid = amount_paid + $2, status = 'PAID', settled_at = $3
			WHERE id = $1`
		_, err := tx.ExecContext(ctx, up, fineID, amount, at)
		return err
	}
	const up = `
		UPDATE fines
		SET amount_paid = amount_paid + $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, up, fineID, amount)
	return err
}

func (r *repo) MarkWaived(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error {
	const q = `
		UPDATE fines
		SET status = 'WAIVED', settled_at = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, fineID, at)
	return err
}

func (r *repo) OutstandingBalance(ctx context.Context, tx *sql.Tx, userID int64) (float64, error) {
	const q = `
		SELECT COALESCE(SUM(amount - amount_paid), 0)
		FROM fines
		WHERE user_id = $1 AND status = 'OUTSTANDING'`
	var bal float64
	err := tx.QueryRowContext(ctx, q, userID).Scan(&bal)
	return bal, err
}

func (r *repo) Get(ctx context.Context, fineID int64) (*model.Fine, error) {
	const q = `
		SELECT ` + fineCols + `
		FROM fines
		WHERE id = $1`
	return scanFine(r.db.QueryRowContext(ctx, q, fineID))
}

func (r *repo) ListForUser(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error) {
	const q = `
		SELECT ` + fineCols + `
		FROM fines
		WHERE user_id = $1
		  AND ($2 OR status = 'OUTSTANDING')
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, includeSettled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFines(rows)
}

func (r *repo) ListAll(ctx context.Context, userID int64, status string, offset, limit int) ([]model.Fine, error) {
	const q = `
		SELECT ` + fineCols + `
		FROM fines
		WHERE ($1 = 0 OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		OFFSET $3 LIMIT $4`
	rows, err := r.db.QueryContext(ctx, q, userID, status, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFines(rows)
}

func (r *repo) Payments(ctx context.Context, fineID int64) ([]model.FinePayment, error) {
	const q = `
		SELECT id, fine_id, amount, method, created_at
		FROM fine_payments
		WHERE fine_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, fineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FinePayment
	for rows.Next() {
		var p model.FinePayment
		if err := rows.Scan(&p.ID, &p.FineID, &p.Amount, &p.Method, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func collectFines(rows *sql.Rows) ([]model.Fine, error) {
	var out []model.Fine
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}
