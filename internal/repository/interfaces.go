package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-engine/internal/domain"
)

// TxManager runs a function inside a database transaction. Any error
// returned by the function rolls back every prior step.
type TxManager interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// CatalogRepository defines data operations on books and copies.
// Methods taking a *sqlx.Tx are steps of a larger transaction; copy
// counts are always derived from copy rows, never stored.
type CatalogRepository interface {
	// CreateBook inserts the book row. A unique violation on isbn
	// surfaces as errors.ErrDuplicateISBN.
	CreateBook(ctx context.Context, tx *sqlx.Tx, book *domain.Book) error

	// GetBook retrieves a book outside any transaction.
	GetBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error)

	// GetBookForUpdate retrieves and row-locks a book.
	GetBookForUpdate(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (*domain.Book, error)

	// SetBookStatus updates the book status.
	SetBookStatus(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, status string) error

	// InsertCopies creates count available copies for the book.
	InsertCopies(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, count int) error

	// RemoveAvailableCopies deletes up to count copies from the
	// available pool and reports how many went. Borrowed and lost
	// copies are never touched.
	RemoveAvailableCopies(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, count int) (int64, error)

	// CountCopies returns the derived tally (lost copies excluded from
	// the total).
	CountCopies(ctx context.Context, bookID uuid.UUID) (*domain.CopyCounts, error)

	// CountCopiesTx is CountCopies inside a transaction.
	CountCopiesTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (*domain.CopyCounts, error)

	// ClaimAvailableCopy atomically picks one available copy of the
	// book, flips it to borrowed and returns its id. Uses
	// FOR UPDATE SKIP LOCKED so concurrent claims never take the same
	// copy; sql.ErrNoRows means nothing was claimable.
	ClaimAvailableCopy(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (uuid.UUID, error)

	// SetCopyStatus conditionally transitions a copy and returns the
	// affected row count; zero rows means the copy was not in the
	// expected state.
	SetCopyStatus(ctx context.Context, tx *sqlx.Tx, copyID uuid.UUID, fromStatus, toStatus string) (int64, error)

	// ListBooks returns the catalog projection with derived counts.
	// Archived books are excluded.
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]*domain.BookListing, error)

	// GetListing returns the projection for a single book, archived or not.
	GetListing(ctx context.Context, bookID uuid.UUID) (*domain.BookListing, error)
}

// ReservationRepository defines data operations on holds.
type ReservationRepository interface {
	// Create inserts the reservation. The partial unique index on
	// (user_id, book_id) for active rows surfaces a duplicate as
	// errors.ErrDuplicateReservation.
	Create(ctx context.Context, tx *sqlx.Tx, reservation *domain.Reservation) error

	GetByID(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error)

	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID) (*domain.Reservation, error)

	// CountActiveForBook counts active holds on a title.
	CountActiveForBook(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (int, error)

	// CountActiveForUser counts a borrower's active holds across titles.
	CountActiveForUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error)

	// UpdateStatus conditionally transitions a reservation and returns
	// the affected row count.
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID, fromStatus, toStatus string) (int64, error)

	// ExpireDue sweeps active reservations whose expiry has passed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error)
}

// LoanRepository defines data operations on loans.
type LoanRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error

	GetByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)

	// GetDetailForUpdate retrieves a loan joined with its copy and book
	// (for the price), locking the loan row.
	GetDetailForUpdate(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) (*domain.LoanDetail, error)

	// CountOpenByUser counts reserved + borrowed loans for a borrower
	// inside a transaction (borrow-limit check).
	CountOpenByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error)

	// UpdateStatus conditionally transitions a loan; returnDate is set
	// when closing it. Returns the affected row count.
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID, fromStatus, toStatus string, returnDate *time.Time) (int64, error)

	// SetDueDate stamps borrow and due dates, used when a pending
	// loan is approved.
	SetDueDate(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID, borrowDate, dueDate time.Time) error

	// List returns loans joined with book info, optionally filtered by
	// user and status.
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanDetail, error)

	// ListOverdueOpenByUser returns a borrower's borrowed loans past
	// due, with book prices (live liability check).
	ListOverdueOpenByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.LoanDetail, error)

	// CountsByUser returns open and overdue-open loan counts for the
	// clearance verdict.
	CountsByUser(ctx context.Context, userID uuid.UUID, now time.Time) (open int, overdue int, err error)
}

// PenaltyRepository defines data operations on penalties and payments.
type PenaltyRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, penalty *domain.Penalty) error

	GetByID(ctx context.Context, penaltyID uuid.UUID) (*domain.Penalty, error)

	// MarkPaid transitions pending -> paid; zero affected rows means
	// the penalty was not pending.
	MarkPaid(ctx context.Context, tx *sqlx.Tx, penaltyID uuid.UUID, paidDate time.Time) (int64, error)

	// MarkWaived transitions pending -> waived.
	MarkWaived(ctx context.Context, tx *sqlx.Tx, penaltyID uuid.UUID, paidDate time.Time) (int64, error)

	// SumPendingByUser totals a borrower's pending penalty amounts.
	SumPendingByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// List returns penalties joined with book titles, filtered by
	// status and free-text search over borrower id and book title.
	List(ctx context.Context, filter domain.PenaltyFilter) ([]*domain.PenaltyDetail, error)

	// CreatePayment appends the audit record for a collected penalty.
	CreatePayment(ctx context.Context, tx *sqlx.Tx, payment *domain.Payment) error
}
