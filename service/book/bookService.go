package booksvc

import (
	"context"
	"database/sql"
	"errors"

	"library/model"
	"library/util/apperr"
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

type Service interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context, search string, offset, limit int) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
	Counts(ctx context.Context, id int64) (*model.CopyCounts, error)

	// Delete removes a book with no open loans; copies go with it and queued
	// holds are cancelled, never silently cascaded.
	Delete(ctx context.Context, bookID int64) error
}

type service struct {
	db *sql.DB
	r  Repo
}

func New(db *sql.DB, r Repo) Service { return &service{db: db, r: r} }

func (s *service) Create(ctx context.Context, b *model.Book) error {
	if b.Title == "" || b.Author == "" || b.Price < 0 {
		return errors.New("invalid payload")
	}
	return s.r.Create(ctx, b)
}

func (s *service) Update(ctx context.Context, b *model.Book) error {
	if b.Title == "" || b.Author == "" || b.Price < 0 {
		return errors.New("invalid payload")
	}
	if err := s.r.Update(ctx, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound)
		}
		return err
	}
	return nil
}

func (s *service) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	if _, err := s.Detail(ctx, bookID); err != nil {
		return 0, err
	}
	return s.r.AddCopies(ctx, bookID, n)
}

func (s *service) List(ctx context.Context, search string, offset, limit int) ([]model.Book, error) {
	return s.r.List(ctx, search, offset, limit)
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Counts(ctx context.Context, id int64) (*model.CopyCounts, error) {
	if _, err := s.Detail(ctx, id); err != nil {
		return nil, err
	}
	return s.r.Counts(ctx, id)
}

func (s *service) Delete(ctx context.Context, bookID int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	open, err := s.r.OpenLoanCount(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if open > 0 {
		return apperr.New(apperr.HasOpenLoans)
	}
	if err = s.r.Delete(ctx, tx, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound)
		}
		return err
	}
	return tx.Commit()
}
