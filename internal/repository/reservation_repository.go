package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-engine/internal/domain"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

type reservationRepository struct {
	db *sqlx.DB
}

func NewReservationRepository(db *sqlx.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, tx *sqlx.Tx, reservation *domain.Reservation) error {
	query := `
		INSERT INTO reservations (id, user_id, user_role, book_id, reservation_date, expiry_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		reservation.ID,
		reservation.UserID,
		reservation.UserRole,
		reservation.BookID,
		reservation.ReservationDate,
		reservation.ExpiryDate,
		reservation.Status,
	)
	if isUniqueViolation(err, "reservations_one_active_per_user_book") {
		return customError.ErrDuplicateReservation
	}

	return err
}

func (r *reservationRepository) GetByID(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	query := `
		SELECT id, user_id, user_role, book_id, reservation_date, expiry_date, status
		FROM reservations
		WHERE id = $1
	`

	var reservation domain.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, reservationID); err != nil {
		return nil, err
	}

	return &reservation, nil
}

func (r *reservationRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID) (*domain.Reservation, error) {
	query := `
		SELECT id, user_id, user_role, book_id, reservation_date, expiry_date, status
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`

	var reservation domain.Reservation
	if err := tx.GetContext(ctx, &reservation, query, reservationID); err != nil {
		return nil, err
	}

	return &reservation, nil
}

func (r *reservationRepository) CountActiveForBook(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE book_id = $1 AND status = $2 AND expiry_date > $3
	`

	var count int
	err := tx.GetContext(ctx, &count, query, bookID, domain.ReservationStatusActive, time.Now())
	return count, err
}

func (r *reservationRepository) CountActiveForUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE user_id = $1 AND status = $2 AND expiry_date > $3
	`

	var count int
	err := tx.GetContext(ctx, &count, query, userID, domain.ReservationStatusActive, time.Now())
	return count, err
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID, fromStatus, toStatus string) (int64, error) {
	query := `
		UPDATE reservations
		SET status = $3
		WHERE id = $1 AND status = $2
	`

	res, err := tx.ExecContext(ctx, query, reservationID, fromStatus, toStatus)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *reservationRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE reservations
		SET status = $1
		WHERE status = $2 AND expiry_date < $3
	`

	res, err := r.db.ExecContext(ctx, query, domain.ReservationStatusExpired, domain.ReservationStatusActive, now)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Reservation, error) {
	query := `
		SELECT id, user_id, user_role, book_id, reservation_date, expiry_date, status
		FROM reservations
		WHERE user_id = $1
		ORDER BY reservation_date DESC
	`

	reservations := []*domain.Reservation{}
	if err := r.db.SelectContext(ctx, &reservations, query, userID); err != nil {
		return nil, err
	}

	return reservations, nil
}
