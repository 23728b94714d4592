package loansvc_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"library/config"
	"library/model"
	loansvc "library/service/loan"
	"library/util/apperr"
	"library/util/clock"
)

type repoMock struct {
	lockAvailableCopyFn func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	setCopyStatusFn     func(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error
	insertFn            func(ctx context.Context, tx *sql.Tx, userID, copyID int64, checkedOut, due time.Time) (int64, error)
	getForUpdateFn      func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error)
	countOpenFn         func(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
	extendDueFn         func(ctx context.Context, tx *sql.Tx, loanID int64, due time.Time) error
	markReturnedFn      func(ctx context.Context, tx *sql.Tx, loanID int64, at time.Time) error
	markOverdueBatchFn  func(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Loan, error)
}

var _ loansvc.Repo = (*repoMock)(nil)

func (m *repoMock) LockAvailableCopy(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	return m.lockAvailableCopyFn(ctx, tx, bookID)
}
func (m *repoMock) SetCopyStatus(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error {
	if m.setCopyStatusFn == nil {
		return nil
	}
	return m.setCopyStatusFn(ctx, tx, copyID, status)
}
func (m *repoMock) Insert(ctx context.Context, tx *sql.Tx, userID, copyID int64, checkedOut, due time.Time) (int64, error) {
	return m.insertFn(ctx, tx, userID, copyID, checkedOut, due)
}
func (m *repoMock) GetForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
	return m.getForUpdateFn(ctx, tx, loanID)
}
func (m *repoMock) CountOpenForUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	if m.countOpenFn == nil {
		return 0, nil
	}
	return m.countOpenFn(ctx, tx, userID)
}
func (m *repoMock) ExtendDue(ctx context.Context, tx *sql.Tx, loanID int64, due time.Time) error {
	return m.extendDueFn(ctx, tx, loanID, due)
}
func (m *repoMock) MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, at time.Time) error {
	if m.markReturnedFn == nil {
		return nil
	}
	return m.markReturnedFn(ctx, tx, loanID, at)
}
func (m *repoMock) ListForUser(ctx context.Context, userID int64, includeReturned bool) ([]model.Loan, error) {
	return nil, nil
}
func (m *repoMock) Get(ctx context.Context, loanID int64) (*model.Loan, error) { return nil, nil }
func (m *repoMock) ListAll(ctx context.Context, status string, userID int64, overdueOnly bool, now time.Time, offset, limit int) ([]model.Loan, error) {
	return nil, nil
}
func (m *repoMock) MarkOverdueBatch(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Loan, error) {
	return m.markOverdueBatchFn(ctx, tx, now)
}

type bookMock struct {
	detailFn func(ctx context.Context, id int64) (*model.Book, error)
}

func (m *bookMock) Detail(ctx context.Context, id int64) (*model.Book, error) {
	if m.detailFn == nil {
		return &model.Book{ID: id, Title: "Dune", Price: 25}, nil
	}
	return m.detailFn(ctx, id)
}

type holdMock struct {
	hasActiveFromOthersFn func(ctx context.Context, tx *sql.Tx, bookID, exceptUserID int64) (bool, error)
}

func (m *holdMock) HasActiveFromOthers(ctx context.Context, tx *sql.Tx, bookID, exceptUserID int64) (bool, error) {
	if m.hasActiveFromOthersFn == nil {
		return false, nil
	}
	return m.hasActiveFromOthersFn(ctx, tx, bookID, exceptUserID)
}

type fineMock struct {
	inserted  []model.Fine
	balanceFn func(ctx context.Context, tx *sql.Tx, userID int64) (float64, error)
}

func (m *fineMock) Insert(ctx context.Context, tx *sql.Tx, f *model.Fine) error {
	m.inserted = append(m.inserted, *f)
	return nil
}
func (m *fineMock) OutstandingBalance(ctx context.Context, tx *sql.Tx, userID int64) (float64, error) {
	if m.balanceFn == nil {
		return 0, nil
	}
	return m.balanceFn(ctx, tx, userID)
}

type notifMock struct{ inserted []model.Notification }

func (m *notifMock) Insert(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	m.inserted = append(m.inserted, *n)
	return nil
}

type promoMock struct{ promoted []int64 }

func (m *promoMock) PromoteTx(ctx context.Context, tx *sql.Tx, bookID int64) error {
	m.promoted = append(m.promoted, bookID)
	return nil
}

func testPolicy() config.Policy {
	return config.Policy{
		LoanPeriodDays: 14,
		MaxRenewals:    2,
		MaxActiveLoans: 5,
		DailyFineRate:  0.50,
		MaxFinePerLoan: 10.00,
		FineCeiling:    0.00,
		HoldPickupDays: 3,
	}
}

// newDB returns a *sql.DB whose Begin/Commit/Rollback are mocked; the repo
// mocks never touch the tx, so no query expectations are needed.
func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestCheckout_Success(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var copyStatus model.CopyStatus
	r := &repoMock{
		lockAvailableCopyFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
			require.Equal(t, int64(7), bookID)
			return 31, nil
		},
		setCopyStatusFn: func(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error {
			copyStatus = status
			return nil
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, userID, copyID int64, checkedOut, due time.Time) (int64, error) {
			return 101, nil
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	l, err := s.Checkout(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, int64(101), l.ID)
	require.Equal(t, int64(31), l.CopyID)
	require.Equal(t, model.LoanActive, l.Status)
	require.Equal(t, testNow.AddDate(0, 0, 14), l.DueAt)
	require.Equal(t, model.CopyOnLoan, copyStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_NoCopyAvailable(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{
		lockAvailableCopyFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
			return 0, sql.ErrNoRows
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Checkout(context.Background(), 5, 7)
	require.True(t, apperr.Is(err, apperr.NoCopyAvailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_OutstandingFinesBlock(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	fines := &fineMock{balanceFn: func(ctx context.Context, tx *sql.Tx, userID int64) (float64, error) {
		return 4.50, nil
	}}
	s := loansvc.New(db, &repoMock{}, &bookMock{}, &holdMock{}, fines, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Checkout(context.Background(), 5, 7)
	require.True(t, apperr.Is(err, apperr.BorrowingRestricted))
}

func TestCheckout_LoanLimit(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{
		countOpenFn: func(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
			return 5, nil
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Checkout(context.Background(), 5, 7)
	require.True(t, apperr.Is(err, apperr.BorrowingRestricted))
}

func TestCheckout_UnknownBook(t *testing.T) {
	db, _ := newDB(t)
	books := &bookMock{detailFn: func(ctx context.Context, id int64) (*model.Book, error) {
		return nil, sql.ErrNoRows
	}}
	s := loansvc.New(db, &repoMock{}, books, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Checkout(context.Background(), 5, 404)
	require.True(t, apperr.Is(err, apperr.NotFound))
}

func activeLoan() *model.Loan {
	return &model.Loan{
		ID:           101,
		UserID:       5,
		CopyID:       31,
		BookID:       7,
		BookTitle:    "Dune",
		Status:       model.LoanActive,
		CheckedOutAt: testNow.AddDate(0, 0, -7),
		DueAt:        testNow.AddDate(0, 0, 7),
	}
}

func TestRenew_Success(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	oldDue := activeLoan().DueAt
	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			return activeLoan(), nil
		},
		extendDueFn: func(ctx context.Context, tx *sql.Tx, loanID int64, due time.Time) error {
			require.Equal(t, oldDue.AddDate(0, 0, 14), due)
			return nil
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	l, err := s.Renew(context.Background(), 5, model.RoleMember, 101)
	require.NoError(t, err)
	require.Equal(t, 1, l.RenewalCount)
	// The extension runs from the current due date, not from today.
	require.Equal(t, oldDue.AddDate(0, 0, 14), l.DueAt)
}

func TestRenew_LimitExceeded(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			l := activeLoan()
			l.RenewalCount = 2
			return l, nil
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Renew(context.Background(), 5, model.RoleMember, 101)
	require.True(t, apperr.Is(err, apperr.RenewalLimitExceeded))
}

func TestRenew_BlockedByHold(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			return activeLoan(), nil
		},
	}
	holds := &holdMock{hasActiveFromOthersFn: func(ctx context.Context, tx *sql.Tx, bookID, exceptUserID int64) (bool, error) {
		require.Equal(t, int64(7), bookID)
		require.Equal(t, int64(5), exceptUserID)
		return true, nil
	}}
	s := loansvc.New(db, r, &bookMock{}, holds, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Renew(context.Background(), 5, model.RoleMember, 101)
	require.True(t, apperr.Is(err, apperr.HoldConflict))
}

func TestRenew_NotOwner(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			return activeLoan(), nil
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Renew(context.Background(), 99, model.RoleMember, 101)
	require.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestReturn_OnTime(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var copyStatus model.CopyStatus
	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			return activeLoan(), nil
		},
		setCopyStatusFn: func(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error {
			copyStatus = status
			return nil
		},
	}
	fines := &fineMock{}
	promo := &promoMock{}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, fines, &notifMock{},
		promo, &clock.Fake{T: testNow}, testPolicy())

	res, err := s.Return(context.Background(), 5, model.RoleMember, 101, model.ConditionGood)
	require.NoError(t, err)
	require.False(t, res.WasOverdue)
	require.Zero(t, res.FineAmount)
	require.Equal(t, model.CopyAvailable, copyStatus)
	require.Empty(t, fines.inserted)
	// The freed copy is offered to the hold queue.
	require.Equal(t, []int64{7}, promo.promoted)
}

func TestReturn_ThreeDaysLate(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			l := activeLoan()
			l.Status = model.LoanOverdue
			l.DueAt = testNow.AddDate(0, 0, -3)
			return l, nil
		},
	}
	fines := &fineMock{}
	notifs := &notifMock{}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, fines, notifs,
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	res, err := s.Return(context.Background(), 5, model.RoleMember, 101, model.ConditionGood)
	require.NoError(t, err)
	require.True(t, res.WasOverdue)
	require.Equal(t, 3, res.DaysLate)
	require.InDelta(t, 1.50, res.FineAmount, 1e-9)
	require.Len(t, fines.inserted, 1)
	require.Equal(t, model.ReasonOverdue, fines.inserted[0].Reason)
	require.Len(t, notifs.inserted, 1)
	require.Equal(t, model.NotifyFineCreated, notifs.inserted[0].Type)
}

func TestReturn_FineCapped(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			l := activeLoan()
			l.Status = model.LoanOverdue
			l.DueAt = testNow.AddDate(0, 0, -60)
			return l, nil
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	res, err := s.Return(context.Background(), 5, model.RoleMember, 101, model.ConditionGood)
	require.NoError(t, err)
	require.InDelta(t, 10.00, res.FineAmount, 1e-9)
}

func TestReturn_Lost(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var copyStatus model.CopyStatus
	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			return activeLoan(), nil
		},
		setCopyStatusFn: func(ctx context.Context, tx *sql.Tx, copyID int64, status model.CopyStatus) error {
			copyStatus = status
			return nil
		},
	}
	fines := &fineMock{}
	promo := &promoMock{}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, fines, &notifMock{},
		promo, &clock.Fake{T: testNow}, testPolicy())

	res, err := s.Return(context.Background(), 5, model.RoleMember, 101, model.ConditionLost)
	require.NoError(t, err)
	require.Equal(t, model.CopyLost, copyStatus)
	// Replacement charge at catalog price.
	require.InDelta(t, 25.00, res.FineAmount, 1e-9)
	require.Len(t, fines.inserted, 1)
	require.Equal(t, model.ReasonLost, fines.inserted[0].Reason)
	// A lost copy cannot serve the hold queue.
	require.Empty(t, promo.promoted)
}

func TestReturn_AlreadyReturned(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
			l := activeLoan()
			l.Status = model.LoanReturned
			return l, nil
		},
	}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, &notifMock{},
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	_, err := s.Return(context.Background(), 5, model.RoleMember, 101, model.ConditionGood)
	require.True(t, apperr.Is(err, apperr.AlreadyReturned))
}

func TestMarkOverdue(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	r := &repoMock{
		markOverdueBatchFn: func(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Loan, error) {
			return []model.Loan{
				{ID: 1, UserID: 5, BookTitle: "Dune", DueAt: now.AddDate(0, 0, -2)},
				{ID: 2, UserID: 6, BookTitle: "Neuromancer", DueAt: now.AddDate(0, 0, -1)},
			}, nil
		},
	}
	notifs := &notifMock{}
	s := loansvc.New(db, r, &bookMock{}, &holdMock{}, &fineMock{}, notifs,
		&promoMock{}, &clock.Fake{T: testNow}, testPolicy())

	n, err := s.MarkOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, notifs.inserted, 2)
	require.Equal(t, model.NotifyLoanOverdue, notifs.inserted[0].Type)
}
