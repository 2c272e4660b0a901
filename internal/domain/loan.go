package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// LoanStatusReserved is a loan awaiting staff approval; the copy is
	// already held so a second borrower cannot take it meanwhile.
	LoanStatusReserved = "reserved"
	LoanStatusBorrowed = "borrowed"
	LoanStatusReturned = "returned"
	LoanStatusLost     = "lost"
)

// Return conditions
const (
	ConditionGood        = "good"
	ConditionMinorDamage = "minor_damage"
	ConditionMajorDamage = "major_damage"
)

// Borrow policies (direct borrow gating, see config)
const (
	BorrowPolicyImmediate = "immediate"
	BorrowPolicyApproval  = "approval"
)

// Loan ties a user to a specific copy with a due date.
// A copy has at most one open loan (reserved or borrowed) at a time.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	CopyID     uuid.UUID  `json:"copy_id" db:"copy_id"`
	BorrowDate time.Time  `json:"borrow_date" db:"borrow_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Status     string     `json:"status" db:"status"`
}

// IsOpen reports whether the loan still holds its copy.
func (l *Loan) IsOpen() bool {
	return l.Status == LoanStatusReserved || l.Status == LoanStatusBorrowed
}

func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanStatusBorrowed && now.After(l.DueDate)
}

func IsValidCondition(condition string) bool {
	switch condition {
	case ConditionGood, ConditionMinorDamage, ConditionMajorDamage:
		return true
	}
	return false
}

// DTOs for requests and responses

type BorrowRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	BookID uuid.UUID `json:"book_id" validate:"required"`
}

type ReturnRequest struct {
	Condition string `json:"condition" validate:"required,oneof=good minor_damage major_damage"`
	PayNow    bool   `json:"pay_now"`
}

// ReturnResult reports what the return transaction produced. Penalty is
// nil when the return incurred no fee.
type ReturnResult struct {
	Loan    *Loan    `json:"loan"`
	Penalty *Penalty `json:"penalty,omitempty"`
}

type LoanFilter struct {
	UserID uuid.UUID
	Status string
}

// LoanDetail is the listing projection joining loan, copy and book.
type LoanDetail struct {
	Loan
	BookID    uuid.UUID       `json:"book_id" db:"book_id"`
	BookTitle string          `json:"book_title" db:"book_title"`
	BookPrice decimal.Decimal `json:"book_price" db:"book_price"`
}
