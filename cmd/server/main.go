package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/handler"
	"github.com/segyhp/library-engine/internal/repository"
	"github.com/segyhp/library-engine/internal/service"
	"github.com/segyhp/library-engine/pkg/logger"
	"github.com/segyhp/library-engine/pkg/response"
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

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	txm := repository.NewTxManager(db)
	catalogRepo := repository.NewCatalogRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)

	// Initialize services
	cache := service.NewClearanceCache(redisClient, cfg.Lending.ClearanceCacheTTL, zlog)
	catalogService := service.NewCatalogService(catalogRepo, txm)
	reservationService := service.NewReservationService(reservationRepo, catalogRepo, loanRepo, txm, cache, cfg)
	loanService := service.NewLoanService(loanRepo, catalogRepo, reservationRepo, penaltyRepo, txm, cache, cfg)
	penaltyService := service.NewPenaltyService(penaltyRepo, txm, cache)
	clearanceService := service.NewClearanceService(loanRepo, penaltyRepo, cache, cfg)

	// Initialize handlers
	catalogHandler := handler.NewCatalogHandler(catalogService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	loanHandler := handler.NewLoanHandler(loanService)
	penaltyHandler := handler.NewPenaltyHandler(penaltyService)
	clearanceHandler := handler.NewClearanceHandler(clearanceService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(zlog, catalogHandler, reservationHandler, loanHandler, penaltyHandler, clearanceHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	zlog *zap.Logger,
	catalogHandler *handler.CatalogHandler,
	reservationHandler *handler.ReservationHandler,
	loanHandler *handler.LoanHandler,
	penaltyHandler *handler.PenaltyHandler,
	clearanceHandler *handler.ClearanceHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(zlog))
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/books", catalogHandler.AddBook).Methods("POST")
	api.HandleFunc("/books", catalogHandler.ListBooks).Methods("GET")
	api.HandleFunc("/books/{bookId}", catalogHandler.GetBook).Methods("GET")
	api.HandleFunc("/books/{bookId}/stock", catalogHandler.AdjustStock).Methods("PUT")
	api.HandleFunc("/books/{bookId}/archive", catalogHandler.ArchiveBook).Methods("POST")

	api.HandleFunc("/reservations", reservationHandler.Reserve).Methods("POST")
	api.HandleFunc("/reservations/{reservationId}", reservationHandler.Cancel).Methods("DELETE")
	api.HandleFunc("/reservations/{reservationId}/approve", reservationHandler.Approve).Methods("POST")
	api.HandleFunc("/reservations/{reservationId}/reject", reservationHandler.Reject).Methods("POST")

	api.HandleFunc("/loans", loanHandler.Borrow).Methods("POST")
	api.HandleFunc("/loans", loanHandler.ListLoans).Methods("GET")
	api.HandleFunc("/loans/{loanId}/approve", loanHandler.ApprovePending).Methods("POST")
	api.HandleFunc("/loans/{loanId}/return", loanHandler.ProcessReturn).Methods("POST")
	api.HandleFunc("/loans/{loanId}/lost", loanHandler.ProcessLoss).Methods("POST")

	api.HandleFunc("/penalties", penaltyHandler.List).Methods("GET")
	api.HandleFunc("/penalties/{penaltyId}/collect", penaltyHandler.Collect).Methods("POST")
	api.HandleFunc("/penalties/{penaltyId}/waive", penaltyHandler.Waive).Methods("POST")

	api.HandleFunc("/users/{userId}/clearance", clearanceHandler.GetClearance).Methods("GET")
	api.HandleFunc("/users/{userId}/reservations", reservationHandler.ListByUser).Methods("GET")

	return router
}
