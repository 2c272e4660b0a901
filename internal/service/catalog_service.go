package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// CatalogService manages books and their physical copies.
type CatalogService struct {
	catalogRepo repository.CatalogRepository
	txm         repository.TxManager
}

func NewCatalogService(catalogRepo repository.CatalogRepository, txm repository.TxManager) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		txm:         txm,
	}
}

// AddBook creates a book and its initial copies atomically.
func (s *CatalogService) AddBook(ctx context.Context, actor domain.Actor, request *domain.AddBookRequest) (*domain.Book, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	now := time.Now()
	book := &domain.Book{
		ID:        uuid.New(),
		ISBN:      request.ISBN,
		Title:     request.Title,
		Author:    request.Author,
		Price:     request.Price,
		Category:  request.Category,
		Status:    domain.BookStatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.catalogRepo.CreateBook(ctx, tx, book); err != nil {
			if errors.Is(err, customError.ErrDuplicateISBN) {
				return customError.WrapDuplicateISBN(request.ISBN)
			}
			return customError.WrapDatabaseError(err)
		}

		if request.InitialCopies > 0 {
			if err := s.catalogRepo.InsertCopies(ctx, tx, book.ID, request.InitialCopies); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// AdjustStock grows or shrinks a book's copy pool to newTotal. The pool
// can never shrink below the copies currently out on loan, and shrinking
// only ever removes available copies.
func (s *CatalogService) AdjustStock(ctx context.Context, actor domain.Actor, bookID uuid.UUID, newTotal int) (*domain.CopyCounts, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	var counts *domain.CopyCounts
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Lock the book so two stock adjustments serialize.
		if _, err := s.catalogRepo.GetBookForUpdate(ctx, tx, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapBookNotFound(bookID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		current, err := s.catalogRepo.CountCopiesTx(ctx, tx, bookID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if newTotal < current.Borrowed {
			return customError.WrapStockBelowBorrowed(newTotal, current.Borrowed)
		}

		delta := newTotal - current.Total
		switch {
		case delta > 0:
			if err := s.catalogRepo.InsertCopies(ctx, tx, bookID, delta); err != nil {
				return customError.WrapDatabaseError(err)
			}
		case delta < 0:
			removed, err := s.catalogRepo.RemoveAvailableCopies(ctx, tx, bookID, -delta)
			if err != nil {
				return customError.WrapDatabaseError(err)
			}
			if removed != int64(-delta) {
				return customError.WrapStateConflict("copy pool")
			}
		}

		counts, err = s.catalogRepo.CountCopiesTx(ctx, tx, bookID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// ArchiveBook retires a title from the catalog. Refused while any copy
// is out on loan.
func (s *CatalogService) ArchiveBook(ctx context.Context, actor domain.Actor, bookID uuid.UUID) error {
	if !actor.IsStaff() {
		return customError.WrapNotEligible(actor.Role)
	}

	return s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		book, err := s.catalogRepo.GetBookForUpdate(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapBookNotFound(bookID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if book.Status == domain.BookStatusArchived {
			return customError.WrapStateConflict("book")
		}

		counts, err := s.catalogRepo.CountCopiesTx(ctx, tx, bookID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if counts.Borrowed > 0 {
			return customError.WrapHasActiveLoans(bookID.String())
		}

		if err := s.catalogRepo.SetBookStatus(ctx, tx, bookID, domain.BookStatusArchived); err != nil {
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
}

// GetBook returns a single book with derived copy counts.
func (s *CatalogService) GetBook(ctx context.Context, bookID uuid.UUID) (*domain.BookListing, error) {
	listing, err := s.catalogRepo.GetListing(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapBookNotFound(bookID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return listing, nil
}

// ListBooks returns the catalog projection; archived titles are excluded.
func (s *CatalogService) ListBooks(ctx context.Context, filter domain.BookFilter) ([]*domain.BookListing, error) {
	listings, err := s.catalogRepo.ListBooks(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return listings, nil
}
