package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/utils"
)

// checkBorrowAllowance enforces the role-based loan cap inside the
// borrowing transaction. Students are capped; teachers are unlimited;
// every other role is ineligible to borrow at all.
func checkBorrowAllowance(
	ctx context.Context,
	tx *sqlx.Tx,
	loanRepo repository.LoanRepository,
	reservationRepo repository.ReservationRepository,
	cfg *config.Config,
	userID uuid.UUID,
	role string,
) error {
	switch role {
	case domain.RoleTeacher:
		return nil
	case domain.RoleStudent:
	default:
		return customError.WrapNotEligible(role)
	}

	open, err := loanRepo.CountOpenByUser(ctx, tx, userID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	if cfg.Lending.CountReservations {
		holds, err := reservationRepo.CountActiveForUser(ctx, tx, userID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		open += holds
	}

	if open >= cfg.Lending.StudentLoanLimit {
		return customError.WrapLoanLimitReached(cfg.Lending.StudentLoanLimit)
	}

	return nil
}

// LoanService drives the loan lifecycle: borrow, approval of pending
// loans, returns and losses.
type LoanService struct {
	loanRepo        repository.LoanRepository
	catalogRepo     repository.CatalogRepository
	reservationRepo repository.ReservationRepository
	penaltyRepo     repository.PenaltyRepository
	txm             repository.TxManager
	cache           *ClearanceCache
	config          *config.Config
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	catalogRepo repository.CatalogRepository,
	reservationRepo repository.ReservationRepository,
	penaltyRepo repository.PenaltyRepository,
	txm repository.TxManager,
	cache *ClearanceCache,
	cfg *config.Config,
) *LoanService {
	return &LoanService{
		loanRepo:        loanRepo,
		catalogRepo:     catalogRepo,
		reservationRepo: reservationRepo,
		penaltyRepo:     penaltyRepo,
		txm:             txm,
		cache:           cache,
		config:          cfg,
	}
}

// DirectBorrow checks out a copy to the actor without a prior hold.
// Depending on the configured borrow policy the loan starts borrowed
// (immediate) or reserved pending staff confirmation (approval); the
// copy is claimed either way so it cannot be taken twice.
func (s *LoanService) DirectBorrow(ctx context.Context, actor domain.Actor, bookID uuid.UUID) (*domain.Loan, error) {
	if !actor.CanBorrow() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	var loan *domain.Loan
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		book, err := s.catalogRepo.GetBookForUpdate(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapBookNotFound(bookID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if book.Status != domain.BookStatusAvailable {
			return customError.WrapBookNotFound(bookID.String())
		}

		if err := checkBorrowAllowance(ctx, tx, s.loanRepo, s.reservationRepo, s.config,
			actor.UserID, actor.Role); err != nil {
			return err
		}

		counts, err := s.catalogRepo.CountCopiesTx(ctx, tx, bookID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		// Copies already promised to active holds are not up for grabs.
		activeHolds, err := s.reservationRepo.CountActiveForBook(ctx, tx, bookID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if counts.Available <= activeHolds {
			return customError.WrapNoCopiesAvailable(bookID.String())
		}

		copyID, err := s.catalogRepo.ClaimAvailableCopy(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapNoPhysicalCopy(bookID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		status := domain.LoanStatusBorrowed
		if s.config.Lending.BorrowPolicy == domain.BorrowPolicyApproval {
			status = domain.LoanStatusReserved
		}

		now := time.Now()
		loan = &domain.Loan{
			ID:         uuid.New(),
			UserID:     actor.UserID,
			CopyID:     copyID,
			BorrowDate: now,
			DueDate:    utils.CalculateDueDate(now, s.config.LoanPeriod()),
			Status:     status,
		}

		if err := s.loanRepo.Create(ctx, tx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, actor.UserID)

	return loan, nil
}

// ApprovePending confirms a pending-approval loan, restarting its
// borrowing period from the approval instant.
func (s *LoanService) ApprovePending(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	var approved *domain.Loan
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		detail, err := s.loanRepo.GetDetailForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapLoanNotFound(loanID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		affected, err := s.loanRepo.UpdateStatus(ctx, tx, loanID,
			domain.LoanStatusReserved, domain.LoanStatusBorrowed, nil)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapStateConflict("loan")
		}

		now := time.Now()
		due := utils.CalculateDueDate(now, s.config.LoanPeriod())
		if err := s.loanRepo.SetDueDate(ctx, tx, loanID, now, due); err != nil {
			return customError.WrapDatabaseError(err)
		}

		loan := detail.Loan
		loan.Status = domain.LoanStatusBorrowed
		loan.BorrowDate = now
		loan.DueDate = due
		approved = &loan

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, approved.UserID)

	return approved, nil
}

// ProcessReturn closes a borrowed loan. The fee is the greater of the
// overdue charge and the damage charge, both the full book price; a
// positive fee raises a penalty, paid immediately when payNow is set.
func (s *LoanService) ProcessReturn(ctx context.Context, actor domain.Actor, loanID uuid.UUID, request *domain.ReturnRequest) (*domain.ReturnResult, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	if !domain.IsValidCondition(request.Condition) {
		return nil, customError.WrapValidation("unknown return condition", nil)
	}

	var result domain.ReturnResult
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		detail, err := s.loanRepo.GetDetailForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapLoanNotFound(loanID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		now := time.Now()

		affected, err := s.loanRepo.UpdateStatus(ctx, tx, loanID,
			domain.LoanStatusBorrowed, domain.LoanStatusReturned, &now)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapStateConflict("loan")
		}

		affected, err = s.catalogRepo.SetCopyStatus(ctx, tx, detail.CopyID,
			domain.CopyStatusBorrowed, domain.CopyStatusAvailable)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapStateConflict("copy")
		}

		loan := detail.Loan
		loan.Status = domain.LoanStatusReturned
		loan.ReturnDate = &now
		result.Loan = &loan

		fee := utils.ReturnFee(detail.BookPrice,
			utils.IsOverdue(detail.DueDate, now),
			request.Condition == domain.ConditionMajorDamage)
		if !fee.IsPositive() {
			return nil
		}

		penalty, err := s.issuePenalty(ctx, tx, detail.UserID, loanID, fee, request.PayNow, now)
		if err != nil {
			return err
		}
		result.Penalty = penalty

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, result.Loan.UserID)

	return &result, nil
}

// ProcessLoss closes a borrowed loan as lost: the copy leaves the
// lending pool for good and the borrower owes the full book price.
func (s *LoanService) ProcessLoss(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.ReturnResult, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	var result domain.ReturnResult
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		detail, err := s.loanRepo.GetDetailForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapLoanNotFound(loanID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		now := time.Now()

		affected, err := s.loanRepo.UpdateStatus(ctx, tx, loanID,
			domain.LoanStatusBorrowed, domain.LoanStatusLost, &now)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapStateConflict("loan")
		}

		affected, err = s.catalogRepo.SetCopyStatus(ctx, tx, detail.CopyID,
			domain.CopyStatusBorrowed, domain.CopyStatusLost)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapStateConflict("copy")
		}

		loan := detail.Loan
		loan.Status = domain.LoanStatusLost
		loan.ReturnDate = &now
		result.Loan = &loan

		penalty, err := s.issuePenalty(ctx, tx, detail.UserID, loanID,
			utils.LossFee(detail.BookPrice), false, now)
		if err != nil {
			return err
		}
		result.Penalty = penalty

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, result.Loan.UserID)

	return &result, nil
}

func (s *LoanService) issuePenalty(ctx context.Context, tx *sqlx.Tx, userID, loanID uuid.UUID, amount decimal.Decimal, payNow bool, now time.Time) (*domain.Penalty, error) {
	penalty := &domain.Penalty{
		ID:         uuid.New(),
		UserID:     userID,
		LoanID:     loanID,
		AmountDue:  amount,
		Status:     domain.PenaltyStatusPending,
		IssuedDate: now,
	}

	if payNow {
		penalty.Status = domain.PenaltyStatusPaid
		penalty.PaidDate = &now
	}

	if err := s.penaltyRepo.Create(ctx, tx, penalty); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	if payNow {
		payment := &domain.Payment{
			ID:        uuid.New(),
			UserID:    userID,
			PenaltyID: penalty.ID,
			Amount:    amount,
			Status:    domain.PaymentStatusCompleted,
			CreatedAt: now,
		}
		if err := s.penaltyRepo.CreatePayment(ctx, tx, payment); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	return penalty, nil
}

// ListLoans returns loans with book info. Borrowers see their own;
// staff may filter by any user.
func (s *LoanService) ListLoans(ctx context.Context, actor domain.Actor, filter domain.LoanFilter) ([]*domain.LoanDetail, error) {
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}

	loans, err := s.loanRepo.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return loans, nil
}
