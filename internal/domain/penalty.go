package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PenaltyStatusPending = "pending"
	PenaltyStatusPaid    = "paid"
	PenaltyStatusWaived  = "waived"
)

const PaymentStatusCompleted = "completed"

// Penalty is a billable liability raised against a user for an overdue,
// damaged or lost book. The amount is fixed at issuance; only the
// status and paid date change afterwards.
type Penalty struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	AmountDue  decimal.Decimal `json:"amount_due" db:"amount_due"`
	Status     string          `json:"status" db:"status"`
	IssuedDate time.Time       `json:"issued_date" db:"issued_date"`
	PaidDate   *time.Time      `json:"paid_date,omitempty" db:"paid_date"`
}

// Payment is the append-only audit record written when a pending
// penalty is collected. Waivers produce no payment row.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	PenaltyID uuid.UUID       `json:"penalty_id" db:"penalty_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type PenaltyFilter struct {
	Status string
	Search string
}

// PenaltyDetail is the listing projection joining penalty, borrower and book.
type PenaltyDetail struct {
	Penalty
	BookTitle string `json:"book_title" db:"book_title"`
}
