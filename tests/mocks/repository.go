package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/library-engine/internal/domain"
)

// StubTxManager runs the transactional function with a nil tx; the
// repositories underneath are mocks and never touch it.
type StubTxManager struct{}

func (StubTxManager) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) CreateBook(ctx context.Context, tx *sqlx.Tx, book *domain.Book) error {
	args := m.Called(ctx, tx, book)
	return args.Error(0)
}

func (m *MockCatalogRepository) GetBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *MockCatalogRepository) GetBookForUpdate(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (*domain.Book, error) {
	args := m.Called(ctx, tx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *MockCatalogRepository) SetBookStatus(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, status string) error {
	args := m.Called(ctx, tx, bookID, status)
	return args.Error(0)
}

func (m *MockCatalogRepository) InsertCopies(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, count int) error {
	args := m.Called(ctx, tx, bookID, count)
	return args.Error(0)
}

func (m *MockCatalogRepository) RemoveAvailableCopies(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, count int) (int64, error) {
	args := m.Called(ctx, tx, bookID, count)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogRepository) CountCopies(ctx context.Context, bookID uuid.UUID) (*domain.CopyCounts, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CopyCounts), args.Error(1)
}

func (m *MockCatalogRepository) CountCopiesTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (*domain.CopyCounts, error) {
	args := m.Called(ctx, tx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CopyCounts), args.Error(1)
}

func (m *MockCatalogRepository) ClaimAvailableCopy(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, tx, bookID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockCatalogRepository) SetCopyStatus(ctx context.Context, tx *sqlx.Tx, copyID uuid.UUID, fromStatus, toStatus string) (int64, error) {
	args := m.Called(ctx, tx, copyID, fromStatus, toStatus)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogRepository) ListBooks(ctx context.Context, filter domain.BookFilter) ([]*domain.BookListing, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BookListing), args.Error(1)
}

func (m *MockCatalogRepository) GetListing(ctx context.Context, bookID uuid.UUID) (*domain.BookListing, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookListing), args.Error(1)
}

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, tx *sqlx.Tx, reservation *domain.Reservation) error {
	args := m.Called(ctx, tx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID) (*domain.Reservation, error) {
	args := m.Called(ctx, tx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) CountActiveForBook(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, bookID)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) CountActiveForUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID, fromStatus, toStatus string) (int64, error) {
	args := m.Called(ctx, tx, reservationID, fromStatus, toStatus)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reservation), args.Error(1)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	args := m.Called(ctx, tx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetDetailForUpdate(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) (*domain.LoanDetail, error) {
	args := m.Called(ctx, tx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanDetail), args.Error(1)
}

func (m *MockLoanRepository) CountOpenByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID, fromStatus, toStatus string, returnDate *time.Time) (int64, error) {
	args := m.Called(ctx, tx, loanID, fromStatus, toStatus, returnDate)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) SetDueDate(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID, borrowDate, dueDate time.Time) error {
	args := m.Called(ctx, tx, loanID, borrowDate, dueDate)
	return args.Error(0)
}

func (m *MockLoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanDetail, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanDetail), args.Error(1)
}

func (m *MockLoanRepository) ListOverdueOpenByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.LoanDetail, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanDetail), args.Error(1)
}

func (m *MockLoanRepository) CountsByUser(ctx context.Context, userID uuid.UUID, now time.Time) (int, int, error) {
	args := m.Called(ctx, userID, now)
	return args.Int(0), args.Int(1), args.Error(2)
}

type MockPenaltyRepository struct {
	mock.Mock
}

func (m *MockPenaltyRepository) Create(ctx context.Context, tx *sqlx.Tx, penalty *domain.Penalty) error {
	args := m.Called(ctx, tx, penalty)
	return args.Error(0)
}

func (m *MockPenaltyRepository) GetByID(ctx context.Context, penaltyID uuid.UUID) (*domain.Penalty, error) {
	args := m.Called(ctx, penaltyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) MarkPaid(ctx context.Context, tx *sqlx.Tx, penaltyID uuid.UUID, paidDate time.Time) (int64, error) {
	args := m.Called(ctx, tx, penaltyID, paidDate)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPenaltyRepository) MarkWaived(ctx context.Context, tx *sqlx.Tx, penaltyID uuid.UUID, paidDate time.Time) (int64, error) {
	args := m.Called(ctx, tx, penaltyID, paidDate)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPenaltyRepository) SumPendingByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPenaltyRepository) List(ctx context.Context, filter domain.PenaltyFilter) ([]*domain.PenaltyDetail, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PenaltyDetail), args.Error(1)
}

func (m *MockPenaltyRepository) CreatePayment(ctx context.Context, tx *sqlx.Tx, payment *domain.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}
