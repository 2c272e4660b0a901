package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

func seedReservation(t *testing.T, userID, bookID uuid.UUID, expiryDate time.Time) *domain.Reservation {
	t.Helper()
	repo := repository.NewReservationRepository(testDB)

	reservation := &domain.Reservation{
		ID:              uuid.New(),
		UserID:          userID,
		UserRole:        domain.RoleStudent,
		BookID:          bookID,
		ReservationDate: time.Now(),
		ExpiryDate:      expiryDate,
		Status:          domain.ReservationStatusActive,
	}

	withTx(t, func(tx *sqlx.Tx) error {
		return repo.Create(context.Background(), tx, reservation)
	})

	return reservation
}

func seedLoan(t *testing.T, userID, copyID uuid.UUID, dueDate time.Time, status string) *domain.Loan {
	t.Helper()
	repo := repository.NewLoanRepository(testDB)

	loan := &domain.Loan{
		ID:         uuid.New(),
		UserID:     userID,
		CopyID:     copyID,
		BorrowDate: dueDate.Add(-14 * 24 * time.Hour),
		DueDate:    dueDate,
		Status:     status,
	}

	withTx(t, func(tx *sqlx.Tx) error {
		return repo.Create(context.Background(), tx, loan)
	})

	return loan
}

func TestReservationRepository_OneActiveHoldPerUserBook(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewReservationRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0001", 2, decimal.NewFromFloat(100.00))
	userID := uuid.New()

	seedReservation(t, userID, bookID, time.Now().Add(72*time.Hour))

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.Create(ctx, tx, &domain.Reservation{
		ID:              uuid.New(),
		UserID:          userID,
		UserRole:        domain.RoleStudent,
		BookID:          bookID,
		ReservationDate: time.Now(),
		ExpiryDate:      time.Now().Add(72 * time.Hour),
		Status:          domain.ReservationStatusActive,
	})
	assert.ErrorIs(t, err, customError.ErrDuplicateReservation)
}

func TestReservationRepository_SecondHoldAfterCancel(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewReservationRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0002", 2, decimal.NewFromFloat(100.00))
	userID := uuid.New()

	first := seedReservation(t, userID, bookID, time.Now().Add(72*time.Hour))

	withTx(t, func(tx *sqlx.Tx) error {
		affected, err := repo.UpdateStatus(ctx, tx, first.ID,
			domain.ReservationStatusActive, domain.ReservationStatusCancelled)
		require.NoError(t, err)
		require.Equal(t, int64(1), affected)
		return nil
	})

	// The partial unique index only covers active holds.
	seedReservation(t, userID, bookID, time.Now().Add(72*time.Hour))
}

func TestReservationRepository_UpdateStatus_Conditional(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewReservationRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0003", 1, decimal.NewFromFloat(100.00))
	reservation := seedReservation(t, uuid.New(), bookID, time.Now().Add(72*time.Hour))

	withTx(t, func(tx *sqlx.Tx) error {
		affected, err := repo.UpdateStatus(ctx, tx, reservation.ID,
			domain.ReservationStatusActive, domain.ReservationStatusFulfilled)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)

		// A second transition off active matches nothing.
		affected, err = repo.UpdateStatus(ctx, tx, reservation.ID,
			domain.ReservationStatusActive, domain.ReservationStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
		return nil
	})
}

func TestReservationRepository_ExpireDue(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewReservationRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0004", 3, decimal.NewFromFloat(100.00))

	lapsed := seedReservation(t, uuid.New(), bookID, time.Now().Add(-time.Hour))
	current := seedReservation(t, uuid.New(), bookID, time.Now().Add(72*time.Hour))

	expired, err := repo.ExpireDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	got, err := repo.GetByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusExpired, got.Status)

	got, err = repo.GetByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusActive, got.Status)
}

func TestLoanRepository_OneOpenLoanPerCopy(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewLoanRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0005", 1, decimal.NewFromFloat(100.00))
	copyID := claimCopy(t, bookID)

	seedLoan(t, uuid.New(), copyID, time.Now().Add(14*24*time.Hour), domain.LoanStatusBorrowed)

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.Create(ctx, tx, &domain.Loan{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		CopyID:     copyID,
		BorrowDate: time.Now(),
		DueDate:    time.Now().Add(14 * 24 * time.Hour),
		Status:     domain.LoanStatusBorrowed,
	})
	assert.Error(t, err)
}

func TestLoanRepository_SecondLoanAfterReturn(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewLoanRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0006", 1, decimal.NewFromFloat(100.00))
	copyID := claimCopy(t, bookID)

	loan := seedLoan(t, uuid.New(), copyID, time.Now().Add(14*24*time.Hour), domain.LoanStatusBorrowed)

	now := time.Now()
	withTx(t, func(tx *sqlx.Tx) error {
		affected, err := repo.UpdateStatus(ctx, tx, loan.ID,
			domain.LoanStatusBorrowed, domain.LoanStatusReturned, &now)
		require.NoError(t, err)
		require.Equal(t, int64(1), affected)
		return nil
	})

	// Closed loans release the copy for the partial unique index.
	seedLoan(t, uuid.New(), copyID, time.Now().Add(14*24*time.Hour), domain.LoanStatusBorrowed)

	got, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusReturned, got.Status)
	assert.NotNil(t, got.ReturnDate)
}

func TestLoanRepository_CountsByUser(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewLoanRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0007", 3, decimal.NewFromFloat(100.00))
	userID := uuid.New()

	seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(-48*time.Hour), domain.LoanStatusBorrowed)
	seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(7*24*time.Hour), domain.LoanStatusBorrowed)
	seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(-7*24*time.Hour), domain.LoanStatusReturned)

	open, overdue, err := repo.CountsByUser(ctx, userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, open)
	assert.Equal(t, 1, overdue)
}

func TestLoanRepository_ListOverdueOpenByUser(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewLoanRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0008", 2, decimal.NewFromFloat(500.00))
	userID := uuid.New()

	overdueLoan := seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(-24*time.Hour), domain.LoanStatusBorrowed)
	seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(24*time.Hour), domain.LoanStatusBorrowed)

	loans, err := repo.ListOverdueOpenByUser(ctx, userID, time.Now())
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, overdueLoan.ID, loans[0].ID)
	assert.True(t, loans[0].BookPrice.Equal(decimal.NewFromFloat(500.00)))
}

func TestPenaltyRepository_Settlement(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewPenaltyRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0009", 1, decimal.NewFromFloat(500.00))
	userID := uuid.New()
	loan := seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(-24*time.Hour), domain.LoanStatusBorrowed)

	penalty := &domain.Penalty{
		ID:         uuid.New(),
		UserID:     userID,
		LoanID:     loan.ID,
		AmountDue:  decimal.NewFromFloat(500.00),
		Status:     domain.PenaltyStatusPending,
		IssuedDate: time.Now(),
	}
	withTx(t, func(tx *sqlx.Tx) error {
		return repo.Create(ctx, tx, penalty)
	})

	pending, err := repo.SumPendingByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, pending.Equal(decimal.NewFromFloat(500.00)))

	now := time.Now()
	withTx(t, func(tx *sqlx.Tx) error {
		affected, err := repo.MarkPaid(ctx, tx, penalty.ID, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)

		return repo.CreatePayment(ctx, tx, &domain.Payment{
			ID:        uuid.New(),
			UserID:    userID,
			PenaltyID: penalty.ID,
			Amount:    penalty.AmountDue,
			Status:    domain.PaymentStatusCompleted,
			CreatedAt: now,
		})
	})

	// Settling twice matches nothing; the amount never changes.
	withTx(t, func(tx *sqlx.Tx) error {
		affected, err := repo.MarkPaid(ctx, tx, penalty.ID, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
		return nil
	})

	pending, err = repo.SumPendingByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())

	got, err := repo.GetByID(ctx, penalty.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyStatusPaid, got.Status)
	assert.True(t, got.AmountDue.Equal(decimal.NewFromFloat(500.00)))
}

func TestPenaltyRepository_List_FilterByStatus(t *testing.T) {
	setupTestDB(t)

	repo := repository.NewPenaltyRepository(testDB)
	ctx := context.Background()

	bookID := seedBook(t, "978-2-0010", 2, decimal.NewFromFloat(300.00))
	userID := uuid.New()

	first := seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(-24*time.Hour), domain.LoanStatusBorrowed)
	second := seedLoan(t, userID, claimCopy(t, bookID), time.Now().Add(-24*time.Hour), domain.LoanStatusBorrowed)

	withTx(t, func(tx *sqlx.Tx) error {
		if err := repo.Create(ctx, tx, &domain.Penalty{
			ID: uuid.New(), UserID: userID, LoanID: first.ID,
			AmountDue: decimal.NewFromFloat(300.00),
			Status:    domain.PenaltyStatusPending, IssuedDate: time.Now(),
		}); err != nil {
			return err
		}
		paidAt := time.Now()
		return repo.Create(ctx, tx, &domain.Penalty{
			ID: uuid.New(), UserID: userID, LoanID: second.ID,
			AmountDue: decimal.NewFromFloat(300.00),
			Status:    domain.PenaltyStatusPaid, IssuedDate: time.Now(), PaidDate: &paidAt,
		})
	})

	pendingOnly, err := repo.List(ctx, domain.PenaltyFilter{Status: domain.PenaltyStatusPending})
	require.NoError(t, err)
	require.Len(t, pendingOnly, 1)
	assert.Equal(t, first.ID, pendingOnly[0].LoanID)

	all, err := repo.List(ctx, domain.PenaltyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
