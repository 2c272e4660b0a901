package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// ClearanceCache is a read-through Redis cache for clearance verdicts.
// Cache failures degrade to a recompute, never to a request failure.
type ClearanceCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewClearanceCache(redisClient *redis.Client, ttl time.Duration, log *zap.Logger) *ClearanceCache {
	return &ClearanceCache{redis: redisClient, ttl: ttl, log: log}
}

func clearanceKey(userID uuid.UUID) string {
	return fmt.Sprintf("clearance:%s", userID)
}

func (c *ClearanceCache) Get(ctx context.Context, userID uuid.UUID) (*domain.Clearance, bool) {
	if c.redis == nil {
		return nil, false
	}

	raw, err := c.redis.Get(ctx, clearanceKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("clearance cache read failed", zap.Error(customError.WrapCacheError(err)))
		}
		return nil, false
	}

	var clearance domain.Clearance
	if err := json.Unmarshal([]byte(raw), &clearance); err != nil {
		return nil, false
	}

	return &clearance, true
}

func (c *ClearanceCache) Set(ctx context.Context, clearance *domain.Clearance) {
	if c.redis == nil {
		return
	}

	raw, err := json.Marshal(clearance)
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, clearanceKey(clearance.UserID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("clearance cache write failed", zap.Error(customError.WrapCacheError(err)))
	}
}

// Invalidate drops the cached verdict after any lending or penalty
// mutation touching the user.
func (c *ClearanceCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c.redis == nil {
		return
	}

	if err := c.redis.Del(ctx, clearanceKey(userID)).Err(); err != nil {
		c.log.Warn("clearance cache invalidation failed", zap.Error(customError.WrapCacheError(err)))
	}
}

// ClearanceService aggregates a borrower's outstanding loans and
// penalties into a clearance verdict.
type ClearanceService struct {
	loanRepo    repository.LoanRepository
	penaltyRepo repository.PenaltyRepository
	cache       *ClearanceCache
	config      *config.Config
}

func NewClearanceService(
	loanRepo repository.LoanRepository,
	penaltyRepo repository.PenaltyRepository,
	cache *ClearanceCache,
	cfg *config.Config,
) *ClearanceService {
	return &ClearanceService{
		loanRepo:    loanRepo,
		penaltyRepo: penaltyRepo,
		cache:       cache,
		config:      cfg,
	}
}

// GetClearance computes the verdict for a borrower. Borrowers may query
// themselves; staff may query anyone. The role parameter drives the
// borrow-limit display and comes from the caller, not from stored state.
func (s *ClearanceService) GetClearance(ctx context.Context, actor domain.Actor, userID uuid.UUID, role string) (*domain.Clearance, error) {
	if actor.UserID != userID && !actor.IsStaff() {
		return nil, customError.WrapNotEligible(actor.Role)
	}

	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	open, overdue, err := s.loanRepo.CountsByUser(ctx, userID, time.Now())
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// Open overdue loans are liable at the book price via the live
	// due-date check. Returned and lost loans already produced penalty
	// rows, so the two sources never double-count one loan.
	overdueLoans, err := s.loanRepo.ListOverdueOpenByUser(ctx, userID, time.Now())
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	unbilled := decimal.Zero
	for _, loan := range overdueLoans {
		unbilled = unbilled.Add(loan.BookPrice)
	}

	pending, err := s.penaltyRepo.SumPendingByUser(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	total := unbilled.Add(pending)

	status := domain.ClearanceStatusCleared
	if overdue > 0 || total.IsPositive() {
		status = domain.ClearanceStatusOnHold
	}

	clearance := &domain.Clearance{
		UserID:          userID,
		Status:          status,
		OverdueCount:    overdue,
		PendingFeeTotal: total,
		ActiveLoanCount: open,
		BorrowLimit:     s.borrowLimit(role),
	}

	s.cache.Set(ctx, clearance)

	return clearance, nil
}

func (s *ClearanceService) borrowLimit(role string) int {
	switch role {
	case domain.RoleStudent:
		return s.config.Lending.StudentLoanLimit
	case domain.RoleTeacher:
		return domain.BorrowLimitUnlimited
	default:
		return 0
	}
}
