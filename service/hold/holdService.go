package holdsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library/config"
	"library/model"
	"library/util/apperr"
	"library/util/clock"
)

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, at time.Time) (int64, error)
	HasActiveForUserBook(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	UserHasOpenLoanOfBook(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	CountUnreservedAvailable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, holdID int64) (*model.Hold, error)
	LockQueueHead(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Hold, error)
	MarkReady(ctx context.Context, tx *sql.Tx, holdID, copyID int64, pickupUntil time.Time) error
	Resolve(ctx context.Context, tx *sql.Tx, holdID int64, status model.HoldStatus, at time.Time) error
	LockExpired(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]model.Hold, error)
	ListForUser(ctx context.Context, userID int64, status string) ([]model.Hold, error)
	Get(ctx context.Context, holdID int64) (*model.Hold, error)
	ListQueue(ctx context.Context, bookID int64) ([]model.Hold, error)
}

// LoanRepo is the copy/loan slice needed for reservation and fulfillment.
type LoanRepo interface {
	LockAvailableCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	SetCopyStatus(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error
	Insert(ctx context.Context, tx *sql.Tx, userID, copyID int64, checkedOut, due time.Time) (int64, error)
	CountOpenForUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
}

type BookRepo interface {
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type FineRepo interface {
	OutstandingBalance(ctx context.Context, tx *sql.Tx, userID int64) (float64, error)
}

type NotificationRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, n *model.Notification) error
}

type Service interface {
	// Place queues a hold at the tail of the book's FIFO queue.
	Place(ctx context.Context, memberID, bookID int64) (*model.Hold, error)

	// Cancel withdraws a waiting or ready hold; a released reservation is
	// offered to the next member in line.
	Cancel(ctx context.Context, actorID int64, role model.Role, holdID int64) error

	// Fulfill converts a ready hold into a loan against its reserved copy.
	Fulfill(ctx context.Context, holdID int64) (*model.Loan, error)

	// ExpireSweep expires ready holds past their pickup window and promotes
	// the next in line. Idempotent.
	ExpireSweep(ctx context.Context) (int, error)

	// PromoteTx marks the queue head ready against a free copy, inside the
	// caller's transaction. No-op when there is no waiting hold or no copy.
	PromoteTx(ctx context.Context, tx *sql.Tx, bookID int64) error

	MyHolds(ctx context.Context, userID int64, status string) ([]model.Hold, error)
	Detail(ctx context.Context, actorID int64, role model.Role, holdID int64) (*model.Hold, error)
	Queue(ctx context.Context, bookID int64) ([]model.Hold, error)
}

type service struct {
	db     *sql.DB
	r      Repo
	loans  LoanRepo
	books  BookRepo
	fines  FineRepo
	notifs NotificationRepo
	clk    clock.Clock
	pol    config.Policy
}

func New(db *sql.DB, r Repo, loans LoanRepo, books BookRepo, fines FineRepo,
	notifs NotificationRepo, clk clock.Clock, pol config.Policy) Service {
	return &service{db: db, r: r, loans: loans, books: books, fines: fines,
		notifs: notifs, clk: clk, pol: pol}
}

func (s *service) Place(ctx context.Context, memberID, bookID int64) (_ *model.Hold, err error) {
	book, err := s.books.Detail(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	dup, err := s.r.HasActiveForUserBook(ctx, tx, memberID, bookID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.New(apperr.DuplicateHold)
	}
	onLoan, err := s.r.UserHasOpenLoanOfBook(ctx, tx, memberID, bookID)
	if err != nil {
		return nil, err
	}
	if onLoan {
		return nil, apperr.New(apperr.HoldConflict)
	}
	free, err := s.r.CountUnreservedAvailable(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if free > 0 {
		// A copy is on the shelf; borrow it instead of queueing.
		return nil, apperr.New(apperr.HoldConflict)
	}

	now := s.clk.Now()
	id, err := s.r.Insert(ctx, tx, memberID, bookID, now)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Hold{
		ID:        id,
		UserID:    memberID,
		BookID:    bookID,
		BookTitle: book.Title,
		Status:    model.HoldWaiting,
		CreatedAt: now,
	}, nil
}

func (s *service) PromoteTx(ctx context.Context, tx *sql.Tx, bookID int64) error {
	head, err := s.r.LockQueueHead(ctx, tx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	copyID, err := s.loans.LockAvailableCopy(ctx, tx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if err := s.loans.SetCopyStatus(ctx, tx, copyID, model.CopyReserved); err != nil {
		return err
	}

	now := s.clk.Now()
	pickupUntil := now.AddDate(0, 0, s.pol.HoldPickupDays)
	if err := s.r.MarkReady(ctx, tx, head.ID, copyID, pickupUntil); err != nil {
		return err
	}
	return s.notifs.Insert(ctx, tx, &model.Notification{
		UserID: head.UserID,
		Type:   model.NotifyHoldReady,
		Title:  "Book Available for Pickup",
		Message: fmt.Sprintf("Good news! '%s' is now available for pickup. "+
			"Please visit the library by %s to collect your reserved book.",
			head.BookTitle, pickupUntil.Format("2006-01-02")),
		CreatedAt: now,
	})
}

func (s *service) Cancel(ctx context.Context, actorID int64, role model.Role, holdID int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	h, err := s.r.GetForUpdate(ctx, tx, holdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound)
		}
		return err
	}
	if !role.Staff() && h.UserID != actorID {
		return apperr.New(apperr.Forbidden)
	}
	if !h.Status.Active() {
		return apperr.New(apperr.NotActive)
	}

	now := s.clk.Now()
	if err = s.r.Resolve(ctx, tx, h.ID, model.HoldCancelled, now); err != nil {
		return err
	}
	if h.Status == model.HoldReady && h.CopyID != nil {
		if err = s.loans.SetCopyStatus(ctx, tx, *h.CopyID, model.CopyAvailable); err != nil {
			return err
		}
		if err = s.PromoteTx(ctx, tx, h.BookID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *service) Fulfill(ctx context.Context, holdID int64) (_ *model.Loan, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	h, err := s.r.GetForUpdate(ctx, tx, holdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if h.Status != model.HoldReady || h.CopyID == nil {
		return nil, apperr.New(apperr.NotActive)
	}

	// Fulfillment is a checkout performed by staff; the borrower must still
	// clear the loan and fine ceilings.
	balance, err := s.fines.OutstandingBalance(ctx, tx, h.UserID)
	if err != nil {
		return nil, err
	}
	if balance > s.pol.FineCeiling {
		return nil, apperr.New(apperr.BorrowingRestricted)
	}
	open, err := s.loans.CountOpenForUser(ctx, tx, h.UserID)
	if err != nil {
		return nil, err
	}
	if open >= int64(s.pol.MaxActiveLoans) {
		return nil, apperr.New(apperr.BorrowingRestricted)
	}

	now := s.clk.Now()
	due := now.AddDate(0, 0, s.pol.LoanPeriodDays)
	if err = s.loans.SetCopyStatus(ctx, tx, *h.CopyID, model.CopyOnLoan); err != nil {
		return nil, err
	}
	loanID, err := s.loans.Insert(ctx, tx, h.UserID, *h.CopyID, now, due)
	if err != nil {
		return nil, err
	}
	if err = s.r.Resolve(ctx, tx, h.ID, model.HoldFulfilled, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Loan{
		ID:           loanID,
		UserID:       h.UserID,
		CopyID:       *h.CopyID,
		BookID:       h.BookID,
		BookTitle:    h.BookTitle,
		Status:       model.LoanActive,
		CheckedOutAt: now,
		DueAt:        due,
	}, nil
}

func (s *service) ExpireSweep(ctx context.Context) (_ int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.clk.Now()
	expired, err := s.r.LockExpired(ctx, tx, now, 100)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		h := &expired[i]
		if err = s.r.Resolve(ctx, tx, h.ID, model.HoldExpired, now); err != nil {
			return 0, err
		}
		if h.CopyID != nil {
			if err = s.loans.SetCopyStatus(ctx, tx, *h.CopyID, model.CopyAvailable); err != nil {
				return 0, err
			}
		}
		err = s.notifs.Insert(ctx, tx, &model.Notification{
			UserID: h.UserID,
			Type:   model.NotifyHoldExpired,
			Title:  "Hold Expired",
			Message: fmt.Sprintf("Your hold on '%s' was not picked up in time and has expired.",
				h.BookTitle),
			CreatedAt: now,
		})
		if err != nil {
			return 0, err
		}
		// The freed copy goes to the next member in line, if any.
		if err = s.PromoteTx(ctx, tx, h.BookID); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(expired), nil
}

func (s *service) MyHolds(ctx context.Context, userID int64, status string) ([]model.Hold, error) {
	return s.r.ListForUser(ctx, userID, status)
}

func (s *service) Detail(ctx context.Context, actorID int64, role model.Role, holdID int64) (*model.Hold, error) {
	h, err := s.r.Get(ctx, holdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if !role.Staff() && h.UserID != actorID {
		return nil, apperr.New(apperr.Forbidden)
	}
	return h, nil
}

func (s *service) Queue(ctx context.Context, bookID int64) ([]model.Hold, error) {
	if _, err := s.books.Detail(ctx, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	return s.r.ListQueue(ctx, bookID)
}
