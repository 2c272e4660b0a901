package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/domain"
	libraryService "github.com/segyhp/library-engine/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Lending: config.LendingConfig{
			ReservationWindowDays: 3,
			LoanPeriodDays:        14,
			StudentLoanLimit:      3,
			CountReservations:     false,
			BorrowPolicy:          domain.BorrowPolicyImmediate,
			ClearanceCacheTTL:     30 * time.Second,
		},
	}
}

// testCache runs without a Redis client, so every read is a miss and
// writes are dropped. Cache behaviour itself is covered in integration.
func testCache() *libraryService.ClearanceCache {
	return libraryService.NewClearanceCache(nil, time.Minute, zap.NewNop())
}
