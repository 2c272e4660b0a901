package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrBookNotFound         = errors.New("book not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrPenaltyNotFound      = errors.New("penalty not found")
	ErrDuplicateISBN        = errors.New("isbn already exists")
	ErrDuplicateReservation = errors.New("active reservation already exists for this book")
	ErrNoCopiesAvailable    = errors.New("no copies available for reservation")
	ErrNoPhysicalCopy       = errors.New("no physical copy available")
	ErrStockBelowBorrowed   = errors.New("stock cannot shrink below borrowed copies")
	ErrHasActiveLoans       = errors.New("book has copies out on loan")
	ErrLoanLimitReached     = errors.New("borrower loan limit reached")
	ErrNotEligible          = errors.New("role is not eligible for this operation")
	ErrReservationExpired   = errors.New("reservation has expired")
	ErrNotPending           = errors.New("penalty is not pending")
	ErrStateConflict        = errors.New("entity is not in the expected state")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeBookNotFound         = "BOOK_NOT_FOUND"
	ErrCodeReservationNotFound  = "RESERVATION_NOT_FOUND"
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodePenaltyNotFound      = "PENALTY_NOT_FOUND"
	ErrCodeDuplicateISBN        = "DUPLICATE_ISBN"
	ErrCodeDuplicateReservation = "DUPLICATE_RESERVATION"
	ErrCodeNoCopiesAvailable    = "NO_COPIES_AVAILABLE"
	ErrCodeNoPhysicalCopy       = "NO_PHYSICAL_COPY"
	ErrCodeStockBelowBorrowed   = "STOCK_BELOW_BORROWED"
	ErrCodeHasActiveLoans       = "HAS_ACTIVE_LOANS"
	ErrCodeLoanLimitReached     = "LOAN_LIMIT_REACHED"
	ErrCodeNotEligible          = "NOT_ELIGIBLE"
	ErrCodeReservationExpired   = "RESERVATION_EXPIRED"
	ErrCodeNotPending           = "PENALTY_NOT_PENDING"
	ErrCodeStateConflict        = "STATE_CONFLICT"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(message string, err error) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, err)
}

func WrapBookNotFound(bookID string) *BusinessError {
	return NewBusinessError(
		ErrCodeBookNotFound,
		fmt.Sprintf("Book with ID %s not found", bookID),
		ErrBookNotFound,
	)
}

func WrapReservationNotFound(reservationID string) *BusinessError {
	return NewBusinessError(
		ErrCodeReservationNotFound,
		fmt.Sprintf("Reservation with ID %s not found", reservationID),
		ErrReservationNotFound,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapPenaltyNotFound(penaltyID string) *BusinessError {
	return NewBusinessError(
		ErrCodePenaltyNotFound,
		fmt.Sprintf("Penalty with ID %s not found", penaltyID),
		ErrPenaltyNotFound,
	)
}

func WrapDuplicateISBN(isbn string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateISBN,
		fmt.Sprintf("A book with ISBN %s already exists", isbn),
		ErrDuplicateISBN,
	)
}

func WrapDuplicateReservation(bookID string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateReservation,
		fmt.Sprintf("An active reservation already exists for book %s", bookID),
		ErrDuplicateReservation,
	)
}

func WrapNoCopiesAvailable(bookID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoCopiesAvailable,
		fmt.Sprintf("No copies of book %s are available to reserve", bookID),
		ErrNoCopiesAvailable,
	)
}

func WrapNoPhysicalCopy(bookID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoPhysicalCopy,
		fmt.Sprintf("No physical copy of book %s is available", bookID),
		ErrNoPhysicalCopy,
	)
}

func WrapStockBelowBorrowed(requested, borrowed int) *BusinessError {
	return NewBusinessError(
		ErrCodeStockBelowBorrowed,
		fmt.Sprintf("Requested total %d is below %d copies currently on loan", requested, borrowed),
		ErrStockBelowBorrowed,
	)
}

func WrapHasActiveLoans(bookID string) *BusinessError {
	return NewBusinessError(
		ErrCodeHasActiveLoans,
		fmt.Sprintf("Book %s has copies out on loan and cannot be archived", bookID),
		ErrHasActiveLoans,
	)
}

func WrapLoanLimitReached(limit int) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanLimitReached,
		fmt.Sprintf("Borrower has reached the limit of %d concurrent loans", limit),
		ErrLoanLimitReached,
	)
}

func WrapNotEligible(role string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotEligible,
		fmt.Sprintf("Role %s is not eligible for this operation", role),
		ErrNotEligible,
	)
}

func WrapReservationExpired(reservationID string) *BusinessError {
	return NewBusinessError(
		ErrCodeReservationExpired,
		fmt.Sprintf("Reservation %s expired and can no longer be approved", reservationID),
		ErrReservationExpired,
	)
}

func WrapNotPending(penaltyID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotPending,
		fmt.Sprintf("Penalty %s is not pending", penaltyID),
		ErrNotPending,
	)
}

// WrapStateConflict covers optimistic-concurrency misses: a conditional
// update matched zero rows because the entity changed underneath us.
func WrapStateConflict(entity string) *BusinessError {
	return NewBusinessError(
		ErrCodeStateConflict,
		fmt.Sprintf("%s was modified concurrently or is not in the expected state", entity),
		ErrStateConflict,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// CodeOf extracts the business error code, or DATABASE_ERROR for
// anything that is not a BusinessError.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeDatabaseError
}
