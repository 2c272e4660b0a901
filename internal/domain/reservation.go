package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReservationStatusActive    = "active"
	ReservationStatusFulfilled = "fulfilled"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusExpired   = "expired"
)

// Reservation is a hold on a book title, not on a specific copy.
// At most one active reservation exists per (user, book) pair; the
// database enforces this with a partial unique index.
type Reservation struct {
	ID     uuid.UUID `json:"id" db:"id"`
	UserID uuid.UUID `json:"user_id" db:"user_id"`
	// UserRole is captured at reserve time so approval can apply the
	// borrower's loan limit without an ambient user lookup.
	UserRole        string    `json:"user_role" db:"user_role"`
	BookID          uuid.UUID `json:"book_id" db:"book_id"`
	ReservationDate time.Time `json:"reservation_date" db:"reservation_date"`
	ExpiryDate      time.Time `json:"expiry_date" db:"expiry_date"`
	Status          string    `json:"status" db:"status"`
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiryDate)
}

type ReserveRequest struct {
	BookID uuid.UUID `json:"book_id" validate:"required"`
}

// ApproveResult reports what the approval transaction produced.
type ApproveResult struct {
	Reservation *Reservation `json:"reservation"`
	Loan        *Loan        `json:"loan"`
}
