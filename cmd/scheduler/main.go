package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	"github.com/segyhp/library-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	reservationRepo := repository.NewReservationRepository(db)
	loanRepo := repository.NewLoanRepository(db)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zlog.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Schedule tasks
	setupCronJobs(c, cfg, zlog, reservationRepo, loanRepo)

	// Start the scheduler
	c.Start()
	zlog.Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down scheduler")
	<-c.Stop().Done()
	zlog.Info("scheduler stopped")
}

func setupCronJobs(
	c *cron.Cron,
	cfg *config.Config,
	zlog *zap.Logger,
	reservationRepo repository.ReservationRepository,
	loanRepo repository.LoanRepository,
) {
	// Hourly sweep: lapse active reservations whose expiry has passed.
	_, err := c.AddFunc(cfg.Scheduler.ExpirySweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		expired, err := reservationRepo.ExpireDue(ctx, time.Now())
		if err != nil {
			zlog.Error("reservation expiry sweep failed", zap.Error(err))
			return
		}

		zlog.Info("reservation expiry sweep finished", zap.Int64("expired", expired))
	})
	if err != nil {
		zlog.Fatal("failed to schedule expiry sweep", zap.Error(err))
	}

	// Daily report of loans out past their due date. Liability itself
	// is derived live; this only gives the desk a morning overview.
	_, err = c.AddFunc(cfg.Scheduler.OverdueScanSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		overdue, err := loanRepo.List(ctx, domain.LoanFilter{Status: domain.LoanStatusBorrowed})
		if err != nil {
			zlog.Error("overdue scan failed", zap.Error(err))
			return
		}

		now := time.Now()
		count := 0
		for _, loan := range overdue {
			if loan.IsOverdue(now) {
				count++
				zlog.Warn("loan overdue",
					zap.String("loan_id", loan.ID.String()),
					zap.String("user_id", loan.UserID.String()),
					zap.String("book_title", loan.BookTitle),
					zap.Time("due_date", loan.DueDate),
				)
			}
		}

		zlog.Info("overdue scan finished", zap.Int("overdue", count))
	})
	if err != nil {
		zlog.Fatal("failed to schedule overdue scan", zap.Error(err))
	}

	zlog.Info("cron jobs scheduled")
}
