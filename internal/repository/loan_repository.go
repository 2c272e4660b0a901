package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, copy_id, borrow_date, due_date, return_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		loan.ID,
		loan.UserID,
		loan.CopyID,
		loan.BorrowDate,
		loan.DueDate,
		loan.ReturnDate,
		loan.Status,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, user_id, copy_id, borrow_date, due_date, return_date, status
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

const loanDetailColumns = `
	l.id, l.user_id, l.copy_id, l.borrow_date, l.due_date, l.return_date, l.status,
	b.id AS book_id, b.title AS book_title, b.price AS book_price
`

func (r *loanRepository) GetDetailForUpdate(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) (*domain.LoanDetail, error) {
	query := `
		SELECT ` + loanDetailColumns + `
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		JOIN books b ON b.id = c.book_id
		WHERE l.id = $1
		FOR UPDATE OF l
	`

	var detail domain.LoanDetail
	if err := tx.GetContext(ctx, &detail, query, loanID); err != nil {
		return nil, err
	}

	return &detail, nil
}

func (r *loanRepository) CountOpenByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM loans
		WHERE user_id = $1 AND status IN ($2, $3)
	`

	var count int
	err := tx.GetContext(ctx, &count, query, userID, domain.LoanStatusReserved, domain.LoanStatusBorrowed)
	return count, err
}

func (r *loanRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID, fromStatus, toStatus string, returnDate *time.Time) (int64, error) {
	query := `
		UPDATE loans
		SET status = $3, return_date = COALESCE($4, return_date)
		WHERE id = $1 AND status = $2
	`

	res, err := tx.ExecContext(ctx, query, loanID, fromStatus, toStatus, returnDate)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *loanRepository) SetDueDate(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID, borrowDate, dueDate time.Time) error {
	query := `
		UPDATE loans
		SET borrow_date = $2, due_date = $3
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query, loanID, borrowDate, dueDate)
	return err
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanDetail, error) {
	query := `
		SELECT ` + loanDetailColumns + `
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		JOIN books b ON b.id = c.book_id
		WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR l.user_id = $1)
		  AND ($2 = '' OR l.status = $2)
		ORDER BY l.borrow_date DESC
	`

	loans := []*domain.LoanDetail{}
	if err := r.db.SelectContext(ctx, &loans, query, filter.UserID, filter.Status); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListOverdueOpenByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.LoanDetail, error) {
	query := `
		SELECT ` + loanDetailColumns + `
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		JOIN books b ON b.id = c.book_id
		WHERE l.user_id = $1 AND l.status = $2 AND l.due_date < $3
		ORDER BY l.due_date
	`

	loans := []*domain.LoanDetail{}
	if err := r.db.SelectContext(ctx, &loans, query, userID, domain.LoanStatusBorrowed, now); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) CountsByUser(ctx context.Context, userID uuid.UUID, now time.Time) (int, int, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ($2, $3))                    AS open,
			COUNT(*) FILTER (WHERE status = $3 AND due_date < $4)         AS overdue
		FROM loans
		WHERE user_id = $1
	`

	var counts struct {
		Open    int `db:"open"`
		Overdue int `db:"overdue"`
	}
	err := r.db.GetContext(ctx, &counts, query, userID, domain.LoanStatusReserved, domain.LoanStatusBorrowed, now)
	if err != nil {
		return 0, 0, err
	}

	return counts.Open, counts.Overdue, nil
}
