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

// PenaltyService settles liabilities: collecting payment or waiving.
// Penalty amounts are immutable after issuance.
type PenaltyService struct {
	penaltyRepo repository.PenaltyRepository
	txm         repository.TxManager
	cache       *ClearanceCache
}

func NewPenaltyService(penaltyRepo repository.PenaltyRepository, txm repository.TxManager, cache *ClearanceCache) *PenaltyService {
	return &PenaltyService{
		penaltyRepo: penaltyRepo,
		txm:         txm,
		cache:       cache,
	}
}

// Collect marks a pending penalty paid and appends the audit payment
// record, both in one transaction.
func (s *PenaltyService) Collect(ctx context.Context, actor domain.Actor, penaltyID uuid.UUID) (*domain.Penalty, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	var penalty *domain.Penalty
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		penalty, err = s.penaltyRepo.GetByID(ctx, penaltyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapPenaltyNotFound(penaltyID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		now := time.Now()

		affected, err := s.penaltyRepo.MarkPaid(ctx, tx, penaltyID, now)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapNotPending(penaltyID.String())
		}

		payment := &domain.Payment{
			ID:        uuid.New(),
			UserID:    penalty.UserID,
			PenaltyID: penaltyID,
			Amount:    penalty.AmountDue,
			Status:    domain.PaymentStatusCompleted,
			CreatedAt: now,
		}
		if err := s.penaltyRepo.CreatePayment(ctx, tx, payment); err != nil {
			return customError.WrapDatabaseError(err)
		}

		penalty.Status = domain.PenaltyStatusPaid
		penalty.PaidDate = &now

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, penalty.UserID)

	return penalty, nil
}

// Waive forgives a pending penalty. No payment record is written.
func (s *PenaltyService) Waive(ctx context.Context, actor domain.Actor, penaltyID uuid.UUID) (*domain.Penalty, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	var penalty *domain.Penalty
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		penalty, err = s.penaltyRepo.GetByID(ctx, penaltyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapPenaltyNotFound(penaltyID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		now := time.Now()

		affected, err := s.penaltyRepo.MarkWaived(ctx, tx, penaltyID, now)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if affected == 0 {
			return customError.WrapNotPending(penaltyID.String())
		}

		penalty.Status = domain.PenaltyStatusWaived
		penalty.PaidDate = &now

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, penalty.UserID)

	return penalty, nil
}

// List returns penalties for the staff dashboard, filtered by status
// and free-text search over borrower and book title.
func (s *PenaltyService) List(ctx context.Context, actor domain.Actor, filter domain.PenaltyFilter) ([]*domain.PenaltyDetail, error) {
	if !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	penalties, err := s.penaltyRepo.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return penalties, nil
}
