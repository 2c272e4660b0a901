package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ClearanceStatusCleared = "cleared"
	ClearanceStatusOnHold  = "on_hold"
)

// BorrowLimitUnlimited marks roles with no cap on concurrent loans.
const BorrowLimitUnlimited = -1

// Clearance aggregates a borrower's outstanding loans and penalties
// into a single eligibility verdict.
//
// PendingFeeTotal has two sources that never overlap: open overdue
// loans contribute their book price via the live due-date check, and
// closed loans contribute through their pending penalty rows.
type Clearance struct {
	UserID          uuid.UUID       `json:"user_id"`
	Status          string          `json:"status"`
	OverdueCount    int             `json:"overdue_count"`
	PendingFeeTotal decimal.Decimal `json:"pending_fee_total"`
	ActiveLoanCount int             `json:"active_loan_count"`
	// BorrowLimit is the role cap: the configured limit for students,
	// BorrowLimitUnlimited for teachers, 0 for non-borrowing roles.
	BorrowLimit int `json:"borrow_limit"`
}
