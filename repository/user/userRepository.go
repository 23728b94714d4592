// repository/user/repo.go
package userrepo

import (
	"context"
	"database/sql"

	"library/model"
)

// MemberSummary aggregates a member's open circulation state.
type MemberSummary struct {
	ActiveLoans      int64   `json:"active_loans"`
	ActiveHolds      int64   `json:"active_holds"`
	OutstandingFines float64 `json:"outstanding_fines"`
}

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, search string, activeOnly bool, offset, limit int) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Deactivate(ctx context.Context, id int64) error
	Summary(ctx context.Context, id int64) (*MemberSummary, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const userCols = `id, email, full_name, role, password_hash, phone, address, is_active, member_since, created_at, deactivated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash,
		&u.Phone, &u.Address, &u.IsActive, &u.MemberSince, &u.CreatedAt, &u.DeactivatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) Create(ctx context.Context, u *model.User) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, full_name, role, password_hash, phone, address, is_active, member_since)
		VALUES ($1,$2,$3,$4,$5,$6,TRUE,NOW())
		RETURNING id, member_since, created_at`,
		u.Email, u.FullName, u.Role, u.PasswordHash, u.Phone, u.Address,
	).Scan(&u.ID, &u.MemberSince, &u.CreatedAt)
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userCols+`
		FROM users
		WHERE lower(email) = lower($1)`, email))
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userCols+`
		FROM users
		WHERE id = $1`, id))
}

func (r *repo) List(ctx context.Context, search string, activeOnly bool, offset, limit int) ([]model.User, error) {
	const q = `
		SELECT ` + userCols + `
		FROM users
		WHERE ($1 = '' OR full_name ILIKE '%'||$1||'%' OR email ILIKE '%'||$1||'%')
		  AND (NOT $2 OR is_active)
		ORDER BY member_since DESC, id DESC
		OFFSET $3 LIMIT $4`
	rows, err := r.db.QueryContext(ctx, q, search, activeOnly, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, u *model.User) error {
	const q = `
		UPDATE users
		SET full_name = $2, role = $3, phone = $4, address = $5
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, u.ID, u.FullName, u.Role, u.Phone, u.Address)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) Deactivate(ctx context.Context, id int64) error {
	const q = `
		UPDATE users
		SET is_active = FALSE, deactivated_at = NOW()
		WHERE id = $1 AND is_active`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) Summary(ctx context.Context, id int64) (*MemberSummary, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM loans WHERE user_id = $1 AND status IN ('ACTIVE','OVERDUE')),
			(SELECT COUNT(*) FROM holds WHERE user_id = $1 AND status IN ('WAITING','READY')),
			(SELECT COALESCE(SUM(amount - amount_paid), 0) FROM fines WHERE user_id = $1 AND status = 'OUTSTANDING')`
	s := &MemberSummary{}
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ActiveLoans, &s.ActiveHolds, &s.OutstandingFines); err != nil {
		return nil, err
	}
	return s, nil
}
