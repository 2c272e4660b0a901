package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/library-engine/internal/domain"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// pqUniqueViolation is the postgres error code for unique constraint hits.
const pqUniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

type catalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateBook(ctx context.Context, tx *sqlx.Tx, book *domain.Book) error {
	query := `
		INSERT INTO books (id, isbn, title, author, price, category, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.ExecContext(ctx, query,
		book.ID,
		book.ISBN,
		book.Title,
		book.Author,
		book.Price,
		book.Category,
		book.Status,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if isUniqueViolation(err, "books_isbn_key") {
		return customError.ErrDuplicateISBN
	}

	return err
}

func (r *catalogRepository) GetBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	query := `
		SELECT id, isbn, title, author, price, category, status, created_at, updated_at
		FROM books
		WHERE id = $1
	`

	var book domain.Book
	if err := r.db.GetContext(ctx, &book, query, bookID); err != nil {
		return nil, err
	}

	return &book, nil
}

func (r *catalogRepository) GetBookForUpdate(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (*domain.Book, error) {
	query := `
		SELECT id, isbn, title, author, price, category, status, created_at, updated_at
		FROM books
		WHERE id = $1
		FOR UPDATE
	`

	var book domain.Book
	if err := tx.GetContext(ctx, &book, query, bookID); err != nil {
		return nil, err
	}

	return &book, nil
}

func (r *catalogRepository) SetBookStatus(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, status string) error {
	query := `
		UPDATE books
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query, bookID, status, time.Now())
	return err
}

func (r *catalogRepository) InsertCopies(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, count int) error {
	query := `
		INSERT INTO copies (id, book_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	now := time.Now()
	for i := 0; i < count; i++ {
		if _, err := tx.ExecContext(ctx, query, uuid.New(), bookID, domain.CopyStatusAvailable, now, now); err != nil {
			return err
		}
	}

	return nil
}

func (r *catalogRepository) RemoveAvailableCopies(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, count int) (int64, error) {
	// Arbitrary victims from the available pool; locked so a
	// concurrent claim cannot race the delete.
	query := `
		DELETE FROM copies
		WHERE id IN (
			SELECT id FROM copies
			WHERE book_id = $1 AND status = $2
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
	`

	res, err := tx.ExecContext(ctx, query, bookID, domain.CopyStatusAvailable, count)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

const countCopiesQuery = `
	SELECT
		COUNT(*) FILTER (WHERE status <> 'lost')      AS total,
		COUNT(*) FILTER (WHERE status = 'available')  AS available,
		COUNT(*) FILTER (WHERE status = 'borrowed')   AS borrowed
	FROM copies
	WHERE book_id = $1
`

func (r *catalogRepository) CountCopies(ctx context.Context, bookID uuid.UUID) (*domain.CopyCounts, error) {
	var counts domain.CopyCounts
	if err := r.db.GetContext(ctx, &counts, countCopiesQuery, bookID); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *catalogRepository) CountCopiesTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (*domain.CopyCounts, error) {
	var counts domain.CopyCounts
	if err := tx.GetContext(ctx, &counts, countCopiesQuery, bookID); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *catalogRepository) ClaimAvailableCopy(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (uuid.UUID, error) {
	// SKIP LOCKED keeps two concurrent approvals off the same copy:
	// each claim either locks a distinct row or finds none.
	query := `
		UPDATE copies
		SET status = $3, updated_at = $4
		WHERE id = (
			SELECT id FROM copies
			WHERE book_id = $1 AND status = $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`

	var copyID uuid.UUID
	err := tx.GetContext(ctx, &copyID, query, bookID, domain.CopyStatusAvailable, domain.CopyStatusBorrowed, time.Now())
	if err != nil {
		return uuid.Nil, err
	}

	return copyID, nil
}

func (r *catalogRepository) SetCopyStatus(ctx context.Context, tx *sqlx.Tx, copyID uuid.UUID, fromStatus, toStatus string) (int64, error) {
	query := `
		UPDATE copies
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	res, err := tx.ExecContext(ctx, query, copyID, fromStatus, toStatus, time.Now())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

const listingColumns = `
	b.id, b.isbn, b.title, b.author, b.price, b.category, b.status,
	COUNT(c.id) FILTER (WHERE c.status <> 'lost')     AS total_copies,
	COUNT(c.id) FILTER (WHERE c.status = 'available') AS available_copies
`

func (r *catalogRepository) ListBooks(ctx context.Context, filter domain.BookFilter) ([]*domain.BookListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM books b
		LEFT JOIN copies c ON c.book_id = b.id
		WHERE b.status = $1
		  AND ($2 = '' OR b.title ILIKE '%' || $2 || '%' OR b.author ILIKE '%' || $2 || '%' OR b.isbn = $2)
		  AND ($3 = '' OR b.category = $3)
		GROUP BY b.id
		ORDER BY b.title
	`

	listings := []*domain.BookListing{}
	err := r.db.SelectContext(ctx, &listings, query, domain.BookStatusAvailable, filter.Search, filter.Category)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *catalogRepository) GetListing(ctx context.Context, bookID uuid.UUID) (*domain.BookListing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM books b
		LEFT JOIN copies c ON c.book_id = b.id
		WHERE b.id = $1
		GROUP BY b.id
	`

	var listing domain.BookListing
	if err := r.db.GetContext(ctx, &listing, query, bookID); err != nil {
		return nil, err
	}

	return &listing, nil
}
