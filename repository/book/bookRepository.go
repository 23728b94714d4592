package bookrepo

import (
	"context"
	"database/sql"
	"errors"

	"library/model"
)

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context, search string, offset, limit int) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
	Counts(ctx context.Context, id int64) (*model.CopyCounts, error)
	OpenLoanCount(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	Delete(ctx context.Context, tx *sql.Tx, bookID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
		INSERT INTO books (title, author, isbn, genre, price)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q, b.Title, b.Author, b.ISBN, b.Genre, b.Price).
		Scan(&b.ID, &b.CreatedAt)
}

func (r *repo) Update(ctx context.Context, b *model.Book) error {
	const q = `
		UPDATE books
		SET title = $2, author = $3, isbn = $4, genre = $5, price = $6
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, b.ID, b.Title, b.Author, b.ISBN, b.Genre, b.Price)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	if n <= 0 {
		return 0, errors.New("n must be > 0")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	const ins = `INSERT INTO copies (book_id, status) VALUES ($1,'AVAILABLE')`
	for i := 0; i < n; i++ {
		if _, err = tx.ExecContext(ctx, ins, bookID); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (r *repo) List(ctx context.Context, search string, offset, limit int) ([]model.Book, error) {
	const q = `
		SELECT b.id, b.title, b.author, b.isbn, b.genre, b.price, b.created_at,
			COALESCE(COUNT(c.*),0)::BIGINT AS total_copies,
			COALESCE(COUNT(c.*) FILTER (WHERE c.status='AVAILABLE'),0)::BIGINT AS available_copies
		FROM books b
		LEFT JOIN copies c ON c.book_id = b.id
		WHERE ($1 = '' OR b.title ILIKE '%'||$1||'%' OR b.author ILIKE '%'||$1||'%')
		GROUP BY b.id
		ORDER BY b.id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, q, search, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Price,
			&b.CreatedAt, &b.TotalCopies, &b.AvailableCopies); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
		SELECT b.id, b.title, b.author, b.isbn, b.genre, b.price, b.created_at,
			COALESCE(COUNT(c.*),0)::BIGINT AS total_copies,
			COALESCE(COUNT(c.*) FILTER (WHERE c.status='AVAILABLE'),0)::BIGINT AS available_copies
		FROM books b
		LEFT JOIN copies c ON c.book_id = b.id
		WHERE b.id = $1
		GROUP BY b.id`
	var b model.Book
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Title, &b.Author, &b.ISBN,
		&b.Genre, &b.Price, &b.CreatedAt, &b.TotalCopies, &b.AvailableCopies)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) Counts(ctx context.Context, id int64) (*model.CopyCounts, error) {
	const q = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status='AVAILABLE'),
			COUNT(*) FILTER (WHERE status='RESERVED'),
			COUNT(*) FILTER (WHERE status='ON_LOAN'),
			COUNT(*) FILTER (WHERE status='LOST'),
			COUNT(*) FILTER (WHERE status='WITHDRAWN')
		FROM copies
		WHERE book_id = $1`
	c := &model.CopyCounts{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.Total, &c.Available, &c.Reserved,
		&c.OnLoan, &c.Lost, &c.Withdrawn)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) OpenLoanCount(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	const q = `
		SELECT COUNT(*)
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		WHERE c.book_id = $1
		  AND l.status IN ('ACTIVE','OVERDUE')`
	var n int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&n)
	return n, err
}

// Delete removes the book and its copies and cancels queued holds. The
// caller must have verified there are no open loans first.
func (r *repo) Delete(ctx context.Context, tx *sql.Tx, bookID int64) error {
	const cancelHolds = `
		UPDATE holds
		SET status = 'CANCELLED', resolved_at = NOW()
		WHERE book_id = $1 AND status IN ('WAITING','READY')`
	if _, err := tx.ExecContext(ctx, cancelHolds, bookID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM copies WHERE book_id = $1`, bookID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
