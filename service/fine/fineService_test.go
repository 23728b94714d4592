package finesvc_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"library/model"
	finesvc "library/service/fine"
	"library/util/apperr"
	"library/util/clock"
)

type payment struct {
	amount  float64
	settles bool
}

type repoMock struct {
	fine     *model.Fine
	payments []payment
	waived   bool
	listFn   func(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error)
}

var _ finesvc.Repo = (*repoMock)(nil)

func (m *repoMock) Insert(ctx context.Context, tx *sql.Tx, f *model.Fine) error {
	f.ID = 501
	m.fine = f
	return nil
}
func (m *repoMock) GetForUpdate(ctx context.Context, tx *sql.Tx, fineID int64) (*model.Fine, error) {
	if m.fine == nil {
		return nil, sql.ErrNoRows
	}
	cp := *m.fine
	return &cp, nil
}
func (m *repoMock) ApplyPayment(ctx context.Context, tx *sql.Tx, fineID int64, amount float64, method string, at time.Time, settles bool) error {
	m.payments = append(m.payments, payment{amount: amount, settles: settles})
	m.fine.AmountPaid += amount
	if settles {
		m.fine.Status = model.FinePaid
	}
	return nil
}
func (m *repoMock) MarkWaived(ctx context.Context, tx *sql.Tx, fineID int64, at time.Time) error {
	m.waived = true
	m.fine.Status = model.FineWaived
	return nil
}
func (m *repoMock) Get(ctx context.Context, fineID int64) (*model.Fine, error) {
	if m.fine == nil {
		return nil, sql.ErrNoRows
	}
	cp := *m.fine
	return &cp, nil
}
func (m *repoMock) ListForUser(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx, userID, includeSettled)
}
func (m *repoMock) ListAll(ctx context.Context, userID int64, status string, offset, limit int) ([]model.Fine, error) {
	return nil, nil
}
func (m *repoMock) Payments(ctx context.Context, fineID int64) ([]model.FinePayment, error) {
	return nil, nil
}

type notifMock struct{ inserted []model.Notification }

func (m *notifMock) Insert(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	m.inserted = append(m.inserted, *n)
	return nil
}

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func outstandingFine() *model.Fine {
	return &model.Fine{
		ID:        501,
		UserID:    5,
		LoanID:    101,
		Reason:    model.ReasonOverdue,
		Amount:    3.00,
		Status:    model.FineOutstanding,
		CreatedAt: testNow.AddDate(0, 0, -1),
	}
}

func TestPay_Partial(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	r := &repoMock{fine: outstandingFine()}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	f, err := s.Pay(context.Background(), 5, model.RoleMember, 501, 1.00, "cash")
	require.NoError(t, err)
	require.Equal(t, model.FineOutstanding, f.Status)
	require.InDelta(t, 2.00, f.Outstanding(), 1e-9)
	require.Len(t, r.payments, 1)
	require.False(t, r.payments[0].settles)
}

func TestPay_PartialThenSettle(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	r := &repoMock{fine: outstandingFine()}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	_, err := s.Pay(context.Background(), 5, model.RoleMember, 501, 1.00, "cash")
	require.NoError(t, err)

	f, err := s.Pay(context.Background(), 5, model.RoleMember, 501, 2.00, "cash")
	require.NoError(t, err)
	require.Equal(t, model.FinePaid, f.Status)
	require.NotNil(t, f.SettledAt)
	require.True(t, r.payments[1].settles)
}

func TestPay_Overpayment(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{fine: outstandingFine()}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	_, err := s.Pay(context.Background(), 5, model.RoleMember, 501, 3.50, "cash")
	require.True(t, apperr.Is(err, apperr.OverpaymentNotAllowed))
	require.Empty(t, r.payments)
}

func TestPay_AlreadySettled(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	f := outstandingFine()
	f.AmountPaid = 3.00
	f.Status = model.FinePaid
	r := &repoMock{fine: f}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	_, err := s.Pay(context.Background(), 5, model.RoleMember, 501, 1.00, "cash")
	require.True(t, apperr.Is(err, apperr.AlreadySettled))
}

func TestPay_NotOwner(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	r := &repoMock{fine: outstandingFine()}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	_, err := s.Pay(context.Background(), 99, model.RoleMember, 501, 1.00, "cash")
	require.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestPay_FloatResidueSettles(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	f := outstandingFine()
	f.Amount = 0.30
	f.AmountPaid = 0.10 + 0.10 // binary float residue
	r := &repoMock{fine: f}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	got, err := s.Pay(context.Background(), 5, model.RoleMember, 501, 0.10, "cash")
	require.NoError(t, err)
	require.Equal(t, model.FinePaid, got.Status)
}

func TestWaive(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	r := &repoMock{fine: outstandingFine()}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	f, err := s.Waive(context.Background(), 501)
	require.NoError(t, err)
	require.Equal(t, model.FineWaived, f.Status)
	require.NotNil(t, f.SettledAt)
	require.True(t, r.waived)
}

func TestWaive_AlreadySettled(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	f := outstandingFine()
	f.Status = model.FineWaived
	r := &repoMock{fine: f}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	_, err := s.Waive(context.Background(), 501)
	require.True(t, apperr.Is(err, apperr.AlreadySettled))
}

func TestCharge(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	r := &repoMock{}
	notifs := &notifMock{}
	s := finesvc.New(db, r, notifs, &clock.Fake{T: testNow})

	f, err := s.Charge(context.Background(), 5, 101, model.ReasonDamaged, 12.00)
	require.NoError(t, err)
	require.Equal(t, int64(501), f.ID)
	require.Equal(t, model.FineOutstanding, f.Status)
	require.Len(t, notifs.inserted, 1)
	require.Equal(t, model.NotifyFineCreated, notifs.inserted[0].Type)
}

func TestCharge_BadAmount(t *testing.T) {
	db, _ := newDB(t)
	s := finesvc.New(db, &repoMock{}, &notifMock{}, &clock.Fake{T: testNow})

	_, err := s.Charge(context.Background(), 5, 101, model.ReasonDamaged, 0)
	require.Error(t, err)
}

func TestMySummary(t *testing.T) {
	db, _ := newDB(t)
	r := &repoMock{listFn: func(ctx context.Context, userID int64, includeSettled bool) ([]model.Fine, error) {
		require.False(t, includeSettled)
		return []model.Fine{
			{Amount: 3.00, AmountPaid: 1.00, Status: model.FineOutstanding},
			{Amount: 0.50, Status: model.FineOutstanding},
		}, nil
	}}
	s := finesvc.New(db, r, &notifMock{}, &clock.Fake{T: testNow})

	sum, err := s.MySummary(context.Background(), 5, 0.00)
	require.NoError(t, err)
	require.Equal(t, 2, sum.OutstandingCount)
	require.InDelta(t, 2.50, sum.OutstandingAmount, 1e-9)
	require.False(t, sum.CanBorrow)
}
