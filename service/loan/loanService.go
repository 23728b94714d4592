package loansvc

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

// Repo is the slice of the loan repository this service needs.
type Repo interface {
	LockAvailableCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	SetCopyStatus(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error
	Insert(ctx context.Context, tx *sql.Tx, userID, copyID int64, checkedOut, due time.Time) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error)
	CountOpenForUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
	ExtendDue(ctx context.Context, tx *sql.Tx, loanID int64, due time.Time) error
	MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, at time.Time) error
	ListForUser(ctx context.Context, userID int64, includeReturned bool) ([]model.Loan, error)
	Get(ctx context.Context, loanID int64) (*model.Loan, error)
	ListAll(ctx context.Context, status string, userID int64, overdueOnly bool, now time.Time, offset, limit int) ([]model.Loan, error)
	MarkOverdueBatch(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Loan, error)
}

type BookRepo interface {
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type HoldRepo interface {
	HasActiveFromOthers(ctx context.Context, tx *sql.Tx, bookID, exceptUserID int64) (bool, error)
}

type FineRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, f *model.Fine) error
	OutstandingBalance(ctx context.Context, tx *sql.Tx, userID int64) (float64, error)
}

type NotificationRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, n *model.Notification) error
}

// Promoter advances a book's hold queue inside the caller's transaction.
// Implemented by the hold service.
type Promoter interface {
	PromoteTx(ctx context.Context, tx *sql.Tx, bookID int64) error
}

// ReturnResult reports the outcome of a return, including any fine accrued.
type ReturnResult struct {
	Loan       *model.Loan `json:"loan"`
	WasOverdue bool        `json:"was_overdue"`
	DaysLate   int         `json:"days_late"`
	FineAmount float64     `json:"fine_amount"`
}

type Service interface {
	// Checkout borrows any available copy of the book for the member.
	Checkout(ctx context.Context, memberID, bookID int64) (*model.Loan, error)

	// Renew extends an active loan's due date by one loan period.
	Renew(ctx context.Context, actorID int64, role model.Role, loanID int64) (*model.Loan, error)

	// Return closes a loan, releases or writes off the copy, accrues any
	// fine, and promotes the book's hold queue.
	Return(ctx context.Context, actorID int64, role model.Role, loanID int64, cond model.ReturnCondition) (*ReturnResult, error)

	MyLoans(ctx context.Context, userID int64, includeReturned bool) ([]model.Loan, error)
	Detail(ctx context.Context, actorID int64, role model.Role, loanID int64) (*model.Loan, error)
	ListAll(ctx context.Context, status string, userID int64, overdueOnly bool, offset, limit int) ([]model.Loan, error)

	// MarkOverdue flips past-due active loans to OVERDUE and emits one
	// loan_overdue event per flip. Safe to re-run.
	MarkOverdue(ctx context.Context) (int, error)
}

type service struct {
	db     *sql.DB
	r      Repo
	books  BookRepo
	holds  HoldRepo
	fines  FineRepo
	notifs NotificationRepo
	promo  Promoter
	clk    clock.Clock
	pol    config.Policy
}

func New(db *sql.DB, r Repo, books BookRepo, holds HoldRepo, fines FineRepo,
	notifs NotificationRepo, promo Promoter, clk clock.Clock, pol config.Policy) Service {
	return &service{db: db, r: r, books: books, holds: holds, fines: fines,
		notifs: notifs, promo: promo, clk: clk, pol: pol}
}

func (s *service) Checkout(ctx context.Context, memberID, bookID int64) (_ *model.Loan, err error) {
	if _, err := s.books.Detail(ctx, bookID); err != nil {
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

	if err = s.checkRestrictions(ctx, tx, memberID); err != nil {
		return nil, err
	}

	copyID, err := s.r.LockAvailableCopy(ctx, tx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NoCopyAvailable)
		}
		return nil, err
	}
	if err = s.r.SetCopyStatus(ctx, tx, copyID, model.CopyOnLoan); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	due := now.AddDate(0, 0, s.pol.LoanPeriodDays)
	loanID, err := s.r.Insert(ctx, tx, memberID, copyID, now, due)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Loan{
		ID:           loanID,
		UserID:       memberID,
		CopyID:       copyID,
		BookID:       bookID,
		Status:       model.LoanActive,
		CheckedOutAt: now,
		DueAt:        due,
	}, nil
}

// checkRestrictions enforces the concurrent-loan ceiling and the outstanding
// fine ceiling. Shared with hold fulfillment.
func (s *service) checkRestrictions(ctx context.Context, tx *sql.Tx, memberID int64) error {
	balance, err := s.fines.OutstandingBalance(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if balance > s.pol.FineCeiling {
		return apperr.New(apperr.BorrowingRestricted)
	}
	open, err := s.r.CountOpenForUser(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if open >= int64(s.pol.MaxActiveLoans) {
		return apperr.New(apperr.BorrowingRestricted)
	}
	return nil
}

func (s *service) Renew(ctx context.Context, actorID int64, role model.Role, loanID int64) (_ *model.Loan, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	loan, err := s.r.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if !role.Staff() && loan.UserID != actorID {
		return nil, apperr.New(apperr.Forbidden)
	}
	if loan.Status != model.LoanActive {
		return nil, apperr.New(apperr.NotActive)
	}
	if loan.RenewalCount >= s.pol.MaxRenewals {
		return nil, apperr.New(apperr.RenewalLimitExceeded)
	}

	held, err := s.holds.HasActiveFromOthers(ctx, tx, loan.BookID, loan.UserID)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, apperr.New(apperr.HoldConflict)
	}

	due := loan.DueAt.AddDate(0, 0, s.pol.LoanPeriodDays)
	if err = s.r.ExtendDue(ctx, tx, loan.ID, due); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	loan.DueAt = due
	loan.RenewalCount++
	return loan, nil
}

func (s *service) Return(ctx context.Context, actorID int64, role model.Role, loanID int64, cond model.ReturnCondition) (_ *ReturnResult, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	loan, err := s.r.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if !role.Staff() && loan.UserID != actorID {
		return nil, apperr.New(apperr.Forbidden)
	}
	if !loan.Status.Open() {
		return nil, apperr.New(apperr.AlreadyReturned)
	}

	now := s.clk.Now()
	if err = s.r.MarkReturned(ctx, tx, loan.ID, now); err != nil {
		return nil, err
	}

	copyStatus := model.CopyAvailable
	switch cond {
	case model.ConditionDamaged:
		copyStatus = model.CopyWithdrawn
	case model.ConditionLost:
		copyStatus = model.CopyLost
	}
	if err = s.r.SetCopyStatus(ctx, tx, loan.CopyID, copyStatus); err != nil {
		return nil, err
	}

	res := &ReturnResult{Loan: loan}
	if now.After(loan.DueAt) {
		res.WasOverdue = true
		res.DaysLate = int(now.Sub(loan.DueAt).Hours() / 24)
	}
	if res.DaysLate >= 1 {
		amount := float64(res.DaysLate) * s.pol.DailyFineRate
		if amount > s.pol.MaxFinePerLoan {
			amount = s.pol.MaxFinePerLoan
		}
		if err = s.accrueFine(ctx, tx, loan, model.ReasonOverdue, amount, now); err != nil {
			return nil, err
		}
		res.FineAmount += amount
	}
	if cond != model.ConditionGood {
		reason := model.ReasonDamaged
		if cond == model.ConditionLost {
			reason = model.ReasonLost
		}
		book, berr := s.books.Detail(ctx, loan.BookID)
		if berr != nil {
			return nil, berr
		}
		if err = s.accrueFine(ctx, tx, loan, reason, book.Price, now); err != nil {
			return nil, err
		}
		res.FineAmount += book.Price
	}

	// A copy back on the shelf may serve the next hold in line.
	if copyStatus == model.CopyAvailable {
		if err = s.promo.PromoteTx(ctx, tx, loan.BookID); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	loan.Status = model.LoanReturned
	loan.ReturnedAt = &now
	return res, nil
}

func (s *service) accrueFine(ctx context.Context, tx *sql.Tx, loan *model.Loan, reason model.FineReason, amount float64, now time.Time) error {
	if amount <= 0 {
		return nil
	}
	f := &model.Fine{
		UserID:    loan.UserID,
		LoanID:    loan.ID,
		Reason:    reason,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := s.fines.Insert(ctx, tx, f); err != nil {
		return err
	}
	return s.notifs.Insert(ctx, tx, &model.Notification{
		UserID: loan.UserID,
		Type:   model.NotifyFineCreated,
		Title:  "Fine Issued",
		Message: fmt.Sprintf("A %s fine of $%.2f has been charged for '%s'. "+
			"Please settle it to keep borrowing.", reason, amount, loan.BookTitle),
		CreatedAt: now,
	})
}

func (s *service) MyLoans(ctx context.Context, userID int64, includeReturned bool) ([]model.Loan, error) {
	return s.r.ListForUser(ctx, userID, includeReturned)
}

func (s *service) Detail(ctx context.Context, actorID int64, role model.Role, loanID int64) (*model.Loan, error) {
	loan, err := s.r.Get(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if !role.Staff() && loan.UserID != actorID {
		return nil, apperr.New(apperr.Forbidden)
	}
	return loan, nil
}

func (s *service) ListAll(ctx context.Context, status string, userID int64, overdueOnly bool, offset, limit int) ([]model.Loan, error) {
	return s.r.ListAll(ctx, status, userID, overdueOnly, s.clk.Now(), offset, limit)
}

func (s *service) MarkOverdue(ctx context.Context) (_ int, err error) {
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
	flipped, err := s.r.MarkOverdueBatch(ctx, tx, now)
	if err != nil {
		return 0, err
	}
	for i := range flipped {
		l := &flipped[i]
		daysLate := int(now.Sub(l.DueAt).Hours() / 24)
		err = s.notifs.Insert(ctx, tx, &model.Notification{
			UserID: l.UserID,
			Type:   model.NotifyLoanOverdue,
			Title:  "Overdue Book Reminder",
			Message: fmt.Sprintf("Your book '%s' was due on %s and is now %d day(s) overdue. "+
				"Please return it as soon as possible to avoid additional charges.",
				l.BookTitle, l.DueAt.Format("2006-01-02"), daysLate),
			CreatedAt: now,
		})
		if err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(flipped), nil
}
