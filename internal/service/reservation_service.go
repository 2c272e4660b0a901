package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/utils"
)

// ReservationService manages holds on book titles and their conversion
// into loans on staff approval.
type ReservationService struct {
	reservationRepo repository.ReservationRepository
	catalogRepo     repository.CatalogRepository
	loanRepo        repository.LoanRepository
	txm             repository.TxManager
	cache           *ClearanceCache
	config          *config.Config
}

func NewReservationService(
	reservationRepo repository.ReservationRepository,
	catalogRepo repository.CatalogRepository,
	loanRepo repository.LoanRepository,
	txm repository.TxManager,
	cache *ClearanceCache,
	cfg *config.Config,
) *ReservationService {
	return &ReservationService{
		reservationRepo: reservationRepo,
		catalogRepo:     catalogRepo,
		loanRepo:        loanRepo,
		txm:             txm,
		cache:           cache,
		config:          cfg,
	}
}

// Reserve places a hold for the actor on a book title. Holds are
// first-come-first-served against available stock: once every available
// copy is spoken for by an active hold, further holds are refused.
func (s *ReservationService) Reserve(ctx context.Context, actor domain.Actor, bookID uuid.UUID) (*domain.Reservation, error) {
	if !actor.CanBorrow() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	now := time.Now()
	reservation := &domain.Reservation{
		ID:              uuid.New(),
		UserID:          actor.UserID,
		UserRole:        actor.Role,
		BookID:          bookID,
		ReservationDate: now,
		ExpiryDate:      utils.CalculateExpiryDate(now, s.config.ReservationWindow()),
		Status:          domain.ReservationStatusActive,
	}

	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		book, err := s.catalogRepo.GetBookForUpdate(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapBookNotFound(bookID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		// Archived titles are out of the reserve flow entirely.
		if book.Status != domain.BookStatusAvailable {
			return customError.WrapBookNotFound(bookID.String())
		}

		counts, err := s.catalogRepo.CountCopiesTx(ctx, tx, bookID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		activeHolds, err := s.reservationRepo.CountActiveForBook(ctx, tx, bookID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if counts.Available <= activeHolds {
			return customError.WrapNoCopiesAvailable(bookID.String())
		}

		if err := s.reservationRepo.Create(ctx, tx, reservation); err != nil {
			if errors.Is(err, customError.ErrDuplicateReservation) {
				return customError.WrapDuplicateReservation(bookID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// Cancel withdraws the actor's own active hold. Staff may cancel any
// hold; a hold that does not belong to the caller reads as not found.
func (s *ReservationService) Cancel(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) error {
	return s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		reservation, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapReservationNotFound(reservationID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if reservation.UserID != actor.UserID && !actor.IsStaff() {
			return customError.WrapReservationNotFound(reservationID.String())
		}

		return s.transition(ctx, tx, reservationID, domain.ReservationStatusCancelled)
	})
}

// Approve converts an active hold into a borrowed loan against one
// physical copy, all in a single transaction: claim a copy under row
// locking, create the loan, mark the hold fulfilled.
func (s *ReservationService) Approve(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) (*domain.ApproveResult, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	var result domain.ApproveResult
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		reservation, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapReservationNotFound(reservationID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if reservation.Status != domain.ReservationStatusActive {
			return customError.WrapStateConflict("reservation")
		}

		now := time.Now()
		if reservation.IsExpired(now) {
			// The sweep has not caught it yet; refuse and let the row
			// reflect reality.
			if _, err := s.reservationRepo.UpdateStatus(ctx, tx, reservationID,
				domain.ReservationStatusActive, domain.ReservationStatusExpired); err != nil {
				return customError.WrapDatabaseError(err)
			}
			return customError.WrapReservationExpired(reservationID.String())
		}

		// Fulfill first so the hold no longer counts toward the
		// borrower's reservation allowance.
		affected, err := s.reservationRepo.UpdateStatus(ctx, tx, reservationID,
			domain.ReservationStatusActive, domain.ReservationStatusFulfilled)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapStateConflict("reservation")
		}

		if err := checkBorrowAllowance(ctx, tx, s.loanRepo, s.reservationRepo, s.config,
			reservation.UserID, reservation.UserRole); err != nil {
			return err
		}

		copyID, err := s.catalogRepo.ClaimAvailableCopy(ctx, tx, reservation.BookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapNoPhysicalCopy(reservation.BookID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		loan := &domain.Loan{
			ID:         uuid.New(),
			UserID:     reservation.UserID,
			CopyID:     copyID,
			BorrowDate: now,
			DueDate:    utils.CalculateDueDate(now, s.config.LoanPeriod()),
			Status:     domain.LoanStatusBorrowed,
		}
		if err := s.loanRepo.Create(ctx, tx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}

		reservation.Status = domain.ReservationStatusFulfilled
		result.Reservation = reservation
		result.Loan = loan

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, result.Loan.UserID)

	return &result, nil
}

// Reject cancels an active hold on behalf of the desk.
func (s *ReservationService) Reject(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) error {
	if !actor.IsStaff() {
		return customError.WrapNotEligible(actor.Role)
	}

	return s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, reservationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapReservationNotFound(reservationID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		return s.transition(ctx, tx, reservationID, domain.ReservationStatusCancelled)
	})
}

func (s *ReservationService) transition(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID, toStatus string) error {
	affected, err := s.reservationRepo.UpdateStatus(ctx, tx, reservationID, domain.ReservationStatusActive, toStatus)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if affected == 0 {
		return customError.WrapStateConflict("reservation")
	}

	return nil
}

// ListByUser returns a borrower's reservations, own-only for borrowers.
func (s *ReservationService) ListByUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) ([]*domain.Reservation, error) {
	if actor.UserID != userID && !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	reservations, err := s.reservationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return reservations, nil
}

// ExpireDue sweeps active reservations whose expiry has passed. Run by
// the scheduler.
func (s *ReservationService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	expired, err := s.reservationRepo.ExpireDue(ctx, now)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	return expired, nil
}
