package finesvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library/model"
	"library/util/apperr"
	"library/util/clock"
)

// Residual balances below this are treated as settled; payments are fed in
// as currency amounts and float error must not hold a fine open.
const settleEpsilon = 0.005

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, f *model.Fine) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error)
	ApplyPayment(ctx context.Context, tx *sql.Tx, fineID int64, amount float64, method string, at time.Time, settles bool) error
	MarkWaived(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error
	Get(ctx context.Context, fineID int64) (*model.Fine, error)
	ListForUser(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error)
	ListAll(ctx context.Context, userID int64, status string, offset, limit int) ([]model.Fine, error)
	Payments(ctx context.Context, fineID int64) ([]model.FinePayment, error)
}

type NotificationRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, n *model.Notification) error
}

// Summary is a member's fine position.
type Summary struct {
	OutstandingCount  int     `json:"outstanding_count"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	CanBorrow         bool    `json:"can_borrow"`
}

type Service interface {
	// Pay records a payment against a fine. Partial payments are allowed;
	// paying more than the outstanding balance is not.
	Pay(ctx context.Context, actorID int64, role model.Role, fineID int64, amount float64, method string) (*model.Fine, error)

	// Waive writes off an outstanding fine. Irreversible.
	Waive(ctx context.Context, fineID int64) (*model.Fine, error)

	// Charge creates a staff-issued fine (damage or loss assessed at the desk).
	Charge(ctx context.Context, userID, loanID int64, reason model.FineReason, amount float64) (*model.Fine, error)

	MyFines(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error)
	MySummary(ctx context.Context, userID int64, ceiling float64) (*Summary, error)
	Detail(ctx context.Context, actorID int64, role model.Role, fineID int64) (*model.Fine, []model.FinePayment, error)
	ListAll(ctx context.Context, userID int64, status string, offset, limit int) ([]model.Fine, error)
}

type service struct {
	db     *sql.DB
	r      Repo
	notifs NotificationRepo
	clk    clock.Clock
}

func New(db *sql.DB, r Repo, notifs NotificationRepo, clk clock.Clock) Service {
	return &service{db: db, r: r, notifs: notifs, clk: clk}
}

func (s *service) Pay(ctx context.Context, actorID int64, role model.Role, fineID int64, amount float64, method string) (_ *model.Fine, err error) {
	if amount <= 0 {
		return nil, errors.New("amount must be > 0")
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

	f, err := s.r.GetForUpdate(ctx, tx, fineID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if !role.Staff() && f.UserID != actorID {
		return nil, apperr.New(apperr.Forbidden)
	}
	if f.Status != model.FineOutstanding {
		return nil, apperr.New(apperr.AlreadySettled)
	}
	if amount > f.Outstanding()+settleEpsilon {
		return nil, apperr.New(apperr.OverpaymentNotAllowed)
	}

	now := s.clk.Now()
	settles := f.Outstanding()-amount < settleEpsilon
	if err = s.r.ApplyPayment(ctx, tx, f.ID, amount, method, now, settles); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	f.AmountPaid += amount
	if settles {
		f.Status = model.FinePaid
		f.SettledAt = &now
	}
	return f, nil
}

func (s *service) Waive(ctx context.Context, fineID int64) (_ *model.Fine, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	f, err := s.r.GetForUpdate(ctx, tx, fineID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if f.Status != model.FineOutstanding {
		return nil, apperr.New(apperr.AlreadySettled)
	}

	now := s.clk.Now()
	if err = s.r.MarkWaived(ctx, tx, f.ID, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	f.Status = model.FineWaived
	f.SettledAt = &now
	return f, nil
}

func (s *service) Charge(ctx context.Context, userID, loanID int64, reason model.FineReason, amount float64) (_ *model.Fine, err error) {
	if amount <= 0 {
		return nil, errors.New("amount must be > 0")
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

	now := s.clk.Now()
	f := &model.Fine{
		UserID:    userID,
		LoanID:    loanID,
		Reason:    reason,
		Amount:    amount,
		Status:    model.FineOutstanding,
		CreatedAt: now,
	}
	if err = s.r.Insert(ctx, tx, f); err != nil {
		return nil, err
	}
	err = s.notifs.Insert(ctx, tx, &model.Notification{
		UserID:    userID,
		Type:      model.NotifyFineCreated,
		Title:     "Fine Issued",
		Message:   fmt.Sprintf("A %s fine of $%.2f has been charged to your account.", reason, amount),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) MyFines(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error) {
	return s.r.ListForUser(ctx, userID, includeSettled)
}

func (s *service) MySummary(ctx context.Context, userID int64, ceiling float64) (*Summary, error) {
	fines, err := s.r.ListForUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	sum := &Summary{}
	for _, f := range fines {
		sum.OutstandingCount++
		sum.OutstandingAmount += f.Outstanding()
	}
	sum.CanBorrow = sum.OutstandingAmount <= ceiling
	return sum, nil
}

func (s *service) Detail(ctx context.Context, actorID int64, role model.Role, fineID int64) (*model.Fine, []model.FinePayment, error) {
	f, err := s.r.Get(ctx, fineID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperr.New(apperr.NotFound)
		}
		return nil, nil, err
	}
	if !role.Staff() && f.UserID != actorID {
		return nil, nil, apperr.New(apperr.Forbidden)
	}
	pays, err := s.r.Payments(ctx, fineID)
	if err != nil {
		return nil, nil, err
	}
	return f, pays, nil
}

func (s *service) ListAll(ctx context.Context, userID int64, status string, offset, limit int) ([]model.Fine, error) {
	return s.r.ListAll(ctx, userID, status, offset, limit)
}
