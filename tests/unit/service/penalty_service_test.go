package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/library-engine/internal/domain"
	libraryService "github.com/segyhp/library-engine/internal/service"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/tests/mocks"
)

func newPenaltyService(repo *mocks.MockPenaltyRepository) *libraryService.PenaltyService {
	return libraryService.NewPenaltyService(repo, mocks.StubTxManager{}, testCache())
}

func pendingPenalty(penaltyID uuid.UUID) *domain.Penalty {
	return &domain.Penalty{
		ID:        penaltyID,
		UserID:    uuid.New(),
		LoanID:    uuid.New(),
		AmountDue: decimal.NewFromFloat(500.00),
		Status:    domain.PenaltyStatusPending,
	}
}

func TestCollectPenalty(t *testing.T) {
	staff := domain.Actor{UserID: uuid.New(), Role: domain.RoleStaff}
	penaltyID := uuid.New()

	tests := []struct {
		name         string
		actor        domain.Actor
		setupMocks   func(*mocks.MockPenaltyRepository)
		expectedCode string
	}{
		{
			name:  "Success - Pending penalty collected with payment record",
			actor: staff,
			setupMocks: func(repo *mocks.MockPenaltyRepository) {
				penalty := pendingPenalty(penaltyID)
				repo.On("GetByID", mock.Anything, penaltyID).Return(penalty, nil)
				repo.On("MarkPaid", mock.Anything, mock.Anything, penaltyID, mock.Anything).
					Return(int64(1), nil)
				repo.On("CreatePayment", mock.Anything, mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
					return p.PenaltyID == penaltyID &&
						p.Amount.Equal(penalty.AmountDue) &&
						p.Status == domain.PaymentStatusCompleted
				})).Return(nil)
			},
		},
		{
			name:  "Failure - Already paid",
			actor: staff,
			setupMocks: func(repo *mocks.MockPenaltyRepository) {
				repo.On("GetByID", mock.Anything, penaltyID).Return(pendingPenalty(penaltyID), nil)
				repo.On("MarkPaid", mock.Anything, mock.Anything, penaltyID, mock.Anything).
					Return(int64(0), nil)
			},
			expectedCode: customError.ErrCodeNotPending,
		},
		{
			name:  "Failure - Penalty not found",
			actor: staff,
			setupMocks: func(repo *mocks.MockPenaltyRepository) {
				repo.On("GetByID", mock.Anything, penaltyID).Return(nil, sql.ErrNoRows)
			},
			expectedCode: customError.ErrCodePenaltyNotFound,
		},
		{
			name:         "Failure - Borrowers cannot collect",
			actor:        domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent},
			setupMocks:   func(*mocks.MockPenaltyRepository) {},
			expectedCode: customError.ErrCodeNotEligible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockPenaltyRepository)
			tt.setupMocks(repo)

			svc := newPenaltyService(repo)
			penalty, err := svc.Collect(context.Background(), tt.actor, penaltyID)

			if tt.expectedCode != "" {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedCode, customError.CodeOf(err))
				if tt.expectedCode == customError.ErrCodeNotPending {
					repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, domain.PenaltyStatusPaid, penalty.Status)
				assert.NotNil(t, penalty.PaidDate)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestWaivePenalty(t *testing.T) {
	staff := domain.Actor{UserID: uuid.New(), Role: domain.RoleLibrarian}
	penaltyID := uuid.New()

	t.Run("Success - Waiver writes no payment record", func(t *testing.T) {
		repo := new(mocks.MockPenaltyRepository)
		repo.On("GetByID", mock.Anything, penaltyID).Return(pendingPenalty(penaltyID), nil)
		repo.On("MarkWaived", mock.Anything, mock.Anything, penaltyID, mock.Anything).
			Return(int64(1), nil)

		svc := newPenaltyService(repo)
		penalty, err := svc.Waive(context.Background(), staff, penaltyID)

		assert.NoError(t, err)
		assert.Equal(t, domain.PenaltyStatusWaived, penalty.Status)
		repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("Failure - Cannot waive a settled penalty", func(t *testing.T) {
		repo := new(mocks.MockPenaltyRepository)
		repo.On("GetByID", mock.Anything, penaltyID).Return(pendingPenalty(penaltyID), nil)
		repo.On("MarkWaived", mock.Anything, mock.Anything, penaltyID, mock.Anything).
			Return(int64(0), nil)

		svc := newPenaltyService(repo)
		penalty, err := svc.Waive(context.Background(), staff, penaltyID)

		assert.Error(t, err)
		assert.Equal(t, customError.ErrCodeNotPending, customError.CodeOf(err))
		assert.Nil(t, penalty)
	})
}

func TestListPenalties(t *testing.T) {
	t.Run("Success - Staff listing passes the filter through", func(t *testing.T) {
		repo := new(mocks.MockPenaltyRepository)
		repo.On("List", mock.Anything, domain.PenaltyFilter{Status: domain.PenaltyStatusPending}).
			Return([]*domain.PenaltyDetail{}, nil)

		svc := newPenaltyService(repo)
		_, err := svc.List(context.Background(),
			domain.Actor{UserID: uuid.New(), Role: domain.RoleStaff},
			domain.PenaltyFilter{Status: domain.PenaltyStatusPending})

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Failure - Borrowers see no penalty dashboard", func(t *testing.T) {
		svc := newPenaltyService(new(mocks.MockPenaltyRepository))
		_, err := svc.List(context.Background(),
			domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent},
			domain.PenaltyFilter{})

		assert.Error(t, err)
		assert.Equal(t, customError.ErrCodeNotEligible, customError.CodeOf(err))
	})
}
