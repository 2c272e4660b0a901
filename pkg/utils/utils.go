package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateDueDate returns the due date for a loan starting now.
func CalculateDueDate(borrowDate time.Time, loanPeriod time.Duration) time.Time {
	return borrowDate.Add(loanPeriod)
}

// CalculateExpiryDate returns when a reservation placed now lapses.
func CalculateExpiryDate(reservationDate time.Time, window time.Duration) time.Time {
	return reservationDate.Add(window)
}

// IsOverdue checks whether a due date has passed at the given instant.
func IsOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// DaysOverdue returns how many whole days past due a loan is, zero when
// it is not overdue.
func DaysOverdue(dueDate, now time.Time) int {
	if !now.After(dueDate) {
		return 0
	}
	return int(now.Sub(dueDate).Hours() / 24)
}

// ReturnFee computes the liability for a returned book.
// An overdue return charges the full book price; a return with major
// damage charges the replacement (full) price. When both apply the fee
// is the greater of the two, which for equal inputs is the price once,
// never twice.
func ReturnFee(bookPrice decimal.Decimal, overdue bool, majorDamage bool) decimal.Decimal {
	fee := decimal.Zero
	if overdue {
		fee = bookPrice
	}
	if majorDamage && bookPrice.GreaterThan(fee) {
		fee = bookPrice
	}
	return fee
}

// LossFee computes the liability for a lost book: always the full price.
func LossFee(bookPrice decimal.Decimal) decimal.Decimal {
	return bookPrice
}
