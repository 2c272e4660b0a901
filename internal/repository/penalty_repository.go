package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-engine/internal/domain"
)

type penaltyRepository struct {
	db *sqlx.DB
}

func NewPenaltyRepository(db *sqlx.DB) PenaltyRepository {
	return &penaltyRepository{db: db}
}

func (r *penaltyRepository) Create(ctx context.Context, tx *sqlx.Tx, penalty *domain.Penalty) error {
	query := `
		INSERT INTO penalties (id, user_id, loan_id, amount_due, status, issued_date, paid_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		penalty.ID,
		penalty.UserID,
		penalty.LoanID,
		penalty.AmountDue,
		penalty.Status,
		penalty.IssuedDate,
		penalty.PaidDate,
	)

	return err
}

func (r *penaltyRepository) GetByID(ctx context.Context, penaltyID uuid.UUID) (*domain.Penalty, error) {
	query := `
		SELECT id, user_id, loan_id, amount_due, status, issued_date, paid_date
		FROM penalties
		WHERE id = $1
	`

	var penalty domain.Penalty
	if err := r.db.GetContext(ctx, &penalty, query, penaltyID); err != nil {
		return nil, err
	}

	return &penalty, nil
}

func (r *penaltyRepository) MarkPaid(ctx context.Context, tx *sqlx.Tx, penaltyID uuid.UUID, paidDate time.Time) (int64, error) {
	return r.transition(ctx, tx, penaltyID, domain.PenaltyStatusPaid, paidDate)
}

func (r *penaltyRepository) MarkWaived(ctx context.Context, tx *sqlx.Tx, penaltyID uuid.UUID, paidDate time.Time) (int64, error) {
	return r.transition(ctx, tx, penaltyID, domain.PenaltyStatusWaived, paidDate)
}

// transition guards on pending status; the amount is never touched.
func (r *penaltyRepository) transition(ctx context.Context, tx *sqlx.Tx, penaltyID uuid.UUID, toStatus string, paidDate time.Time) (int64, error) {
	query := `
		UPDATE penalties
		SET status = $3, paid_date = $4
		WHERE id = $1 AND status = $2
	`

	res, err := tx.ExecContext(ctx, query, penaltyID, domain.PenaltyStatusPending, toStatus, paidDate)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *penaltyRepository) SumPendingByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_due), 0)
		FROM penalties
		WHERE user_id = $1 AND status = $2
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, userID, domain.PenaltyStatusPending); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *penaltyRepository) List(ctx context.Context, filter domain.PenaltyFilter) ([]*domain.PenaltyDetail, error) {
	query := `
		SELECT p.id, p.user_id, p.loan_id, p.amount_due, p.status, p.issued_date, p.paid_date,
		       b.title AS book_title
		FROM penalties p
		JOIN loans l ON l.id = p.loan_id
		JOIN copies c ON c.id = l.copy_id
		JOIN books b ON b.id = c.book_id
		WHERE ($1 = '' OR p.status = $1)
		  AND ($2 = '' OR b.title ILIKE '%' || $2 || '%' OR p.user_id::text = $2)
		ORDER BY p.issued_date DESC
	`

	penalties := []*domain.PenaltyDetail{}
	if err := r.db.SelectContext(ctx, &penalties, query, filter.Status, filter.Search); err != nil {
		return nil, err
	}

	return penalties, nil
}

func (r *penaltyRepository) CreatePayment(ctx context.Context, tx *sqlx.Tx, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, penalty_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.PenaltyID,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
	)

	return err
}
