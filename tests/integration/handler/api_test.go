package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/handler"
	"github.com/segyhp/library-engine/internal/repository"
	"github.com/segyhp/library-engine/internal/service"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	cfg.Database.Name = "postgres"
	adminDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to postgres database: %v", err))
	}
	defer adminDB.Close()

	testDBName := "library_engine_handler_test"
	adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", testDBName))
	if _, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", testDBName)); err != nil {
		panic(fmt.Sprintf("Failed to create test database: %v", err))
	}

	cfg.Database.Name = testDBName
	testDB, err = sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}

	sqlBytes, err := os.ReadFile("../../../scripts/init.sql")
	if err != nil {
		panic(fmt.Sprintf("Failed to read init.sql: %v", err))
	}
	if _, err := testDB.Exec(string(sqlBytes)); err != nil {
		panic(fmt.Sprintf("Failed to initialize database schema: %v", err))
	}
}

func teardown() {
	if testDB != nil {
		testDB.Close()
	}

	cfg, _ := config.Load()
	cfg.Database.Name = "postgres"

	adminDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return
	}
	defer adminDB.Close()

	adminDB.Exec("DROP DATABASE IF EXISTS library_engine_handler_test")
}

func cleanupTestData(db *sqlx.DB) {
	db.Exec("DELETE FROM payments")
	db.Exec("DELETE FROM penalties")
	db.Exec("DELETE FROM loans")
	db.Exec("DELETE FROM reservations")
	db.Exec("DELETE FROM copies")
	db.Exec("DELETE FROM books")
}

// newTestRouter wires the real services over the scratch database. The
// clearance cache runs without Redis and degrades to recompute.
func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	cleanupTestData(testDB)

	cfg := &config.Config{
		Lending: config.LendingConfig{
			ReservationWindowDays: 3,
			LoanPeriodDays:        14,
			StudentLoanLimit:      3,
			BorrowPolicy:          domain.BorrowPolicyImmediate,
			ClearanceCacheTTL:     30 * time.Second,
		},
	}

	txm := repository.NewTxManager(testDB)
	catalogRepo := repository.NewCatalogRepository(testDB)
	reservationRepo := repository.NewReservationRepository(testDB)
	loanRepo := repository.NewLoanRepository(testDB)
	penaltyRepo := repository.NewPenaltyRepository(testDB)

	cache := service.NewClearanceCache(nil, cfg.Lending.ClearanceCacheTTL, zap.NewNop())
	catalogService := service.NewCatalogService(catalogRepo, txm)
	reservationService := service.NewReservationService(reservationRepo, catalogRepo, loanRepo, txm, cache, cfg)
	loanService := service.NewLoanService(loanRepo, catalogRepo, reservationRepo, penaltyRepo, txm, cache, cfg)
	penaltyService := service.NewPenaltyService(penaltyRepo, txm, cache)
	clearanceService := service.NewClearanceService(loanRepo, penaltyRepo, cache, cfg)

	catalogHandler := handler.NewCatalogHandler(catalogService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	loanHandler := handler.NewLoanHandler(loanService)
	penaltyHandler := handler.NewPenaltyHandler(penaltyService)
	clearanceHandler := handler.NewClearanceHandler(clearanceService)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/books", catalogHandler.AddBook).Methods("POST")
	api.HandleFunc("/books", catalogHandler.ListBooks).Methods("GET")
	api.HandleFunc("/books/{bookId}", catalogHandler.GetBook).Methods("GET")
	api.HandleFunc("/books/{bookId}/stock", catalogHandler.AdjustStock).Methods("PUT")
	api.HandleFunc("/books/{bookId}/archive", catalogHandler.ArchiveBook).Methods("POST")
	api.HandleFunc("/reservations", reservationHandler.Reserve).Methods("POST")
	api.HandleFunc("/reservations/{reservationId}", reservationHandler.Cancel).Methods("DELETE")
	api.HandleFunc("/reservations/{reservationId}/approve", reservationHandler.Approve).Methods("POST")
	api.HandleFunc("/loans", loanHandler.Borrow).Methods("POST")
	api.HandleFunc("/loans/{loanId}/return", loanHandler.ProcessReturn).Methods("POST")
	api.HandleFunc("/penalties/{penaltyId}/collect", penaltyHandler.Collect).Methods("POST")
	api.HandleFunc("/users/{userId}/clearance", clearanceHandler.GetClearance).Methods("GET")

	return router
}

type apiClient struct {
	t      *testing.T
	router *mux.Router
}

func (c *apiClient) do(method, path string, actor domain.Actor, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", actor.UserID.String())
	req.Header.Set("X-Actor-Role", actor.Role)

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	return envelope.Code
}

func addBook(t *testing.T, client *apiClient, staff domain.Actor, isbn string, copies int) domain.Book {
	t.Helper()
	w := client.do(http.MethodPost, "/api/v1/books", staff, map[string]interface{}{
		"isbn":           isbn,
		"title":          "Title " + isbn,
		"author":         "Author " + isbn,
		"price":          "500.00",
		"category":       "reference",
		"initial_copies": copies,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var book domain.Book
	decodeData(t, w, &book)
	return book
}

func TestAddBookEndpoint(t *testing.T) {
	router := newTestRouter(t)
	client := &apiClient{t: t, router: router}
	staff := domain.Actor{UserID: uuid.New(), Role: domain.RoleStaff}

	t.Run("201 on create", func(t *testing.T) {
		book := addBook(t, client, staff, "978-3-0001", 2)
		assert.Equal(t, domain.BookStatusAvailable, book.Status)
	})

	t.Run("409 on duplicate ISBN", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/v1/books", staff, map[string]interface{}{
			"isbn": "978-3-0001", "title": "t", "author": "a",
			"price": "100.00", "category": "reference", "initial_copies": 1,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_ISBN", errorCode(t, w))
	})

	t.Run("400 on negative price", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/v1/books", staff, map[string]interface{}{
			"isbn": "978-3-0002", "title": "t", "author": "a",
			"price": "-1.00", "category": "reference",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("403 for borrowers", func(t *testing.T) {
		student := domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent}
		w := client.do(http.MethodPost, "/api/v1/books", student, map[string]interface{}{
			"isbn": "978-3-0003", "title": "t", "author": "a",
			"price": "100.00", "category": "reference",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("400 without actor headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/books", bytes.NewBufferString("{}"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReservationEndpoints(t *testing.T) {
	router := newTestRouter(t)
	client := &apiClient{t: t, router: router}
	staff := domain.Actor{UserID: uuid.New(), Role: domain.RoleStaff}
	student := domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent}

	book := addBook(t, client, staff, "978-3-0100", 1)

	w := client.do(http.MethodPost, "/api/v1/reservations", student, map[string]interface{}{
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reservation domain.Reservation
	decodeData(t, w, &reservation)
	assert.Equal(t, domain.ReservationStatusActive, reservation.Status)

	t.Run("422 when every copy is on hold", func(t *testing.T) {
		other := domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent}
		w := client.do(http.MethodPost, "/api/v1/reservations", other, map[string]interface{}{
			"book_id": book.ID,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "NO_COPIES_AVAILABLE", errorCode(t, w))
	})

	t.Run("403 when borrower tries to approve", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/v1/reservations/"+reservation.ID.String()+"/approve", student, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("200 on staff approval", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/v1/reservations/"+reservation.ID.String()+"/approve", staff, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result domain.ApproveResult
		decodeData(t, w, &result)
		assert.Equal(t, domain.ReservationStatusFulfilled, result.Reservation.Status)
		assert.Equal(t, domain.LoanStatusBorrowed, result.Loan.Status)
	})

	t.Run("409 on approving twice", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/v1/reservations/"+reservation.ID.String()+"/approve", staff, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("404 on unknown reservation", func(t *testing.T) {
		w := client.do(http.MethodDelete, "/api/v1/reservations/"+uuid.NewString(), student, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReturnAndClearanceEndpoints(t *testing.T) {
	router := newTestRouter(t)
	client := &apiClient{t: t, router: router}
	staff := domain.Actor{UserID: uuid.New(), Role: domain.RoleLibrarian}
	student := domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent}

	book := addBook(t, client, staff, "978-3-0200", 1)

	w := client.do(http.MethodPost, "/api/v1/loans", student, map[string]interface{}{
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var loan domain.Loan
	decodeData(t, w, &loan)

	// Age the loan past its due date.
	_, err := testDB.Exec("UPDATE loans SET due_date = NOW() - INTERVAL '2 days' WHERE id = $1", loan.ID)
	require.NoError(t, err)

	t.Run("clearance goes on hold while overdue", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/v1/users/"+student.UserID.String()+"/clearance", student, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var clearance domain.Clearance
		decodeData(t, w, &clearance)
		assert.Equal(t, domain.ClearanceStatusOnHold, clearance.Status)
		assert.Equal(t, 1, clearance.OverdueCount)
	})

	t.Run("overdue return raises the penalty", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/return", staff, map[string]interface{}{
			"condition": domain.ConditionGood,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result domain.ReturnResult
		decodeData(t, w, &result)
		assert.Equal(t, domain.LoanStatusReturned, result.Loan.Status)
		require.NotNil(t, result.Penalty)
		assert.Equal(t, "500", result.Penalty.AmountDue.String())

		t.Run("collect settles it", func(t *testing.T) {
			w := client.do(http.MethodPost, "/api/v1/penalties/"+result.Penalty.ID.String()+"/collect", staff, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var penalty domain.Penalty
			decodeData(t, w, &penalty)
			assert.Equal(t, domain.PenaltyStatusPaid, penalty.Status)

			w = client.do(http.MethodPost, "/api/v1/penalties/"+result.Penalty.ID.String()+"/collect", staff, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, "PENALTY_NOT_PENDING", errorCode(t, w))
		})
	})

	t.Run("clearance clears after settlement", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/v1/users/"+student.UserID.String()+"/clearance", student, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var clearance domain.Clearance
		decodeData(t, w, &clearance)
		assert.Equal(t, domain.ClearanceStatusCleared, clearance.Status)
		assert.True(t, clearance.PendingFeeTotal.IsZero())
	})

	t.Run("borrower cannot read someone else's clearance", func(t *testing.T) {
		other := domain.Actor{UserID: uuid.New(), Role: domain.RoleStudent}
		w := client.do(http.MethodGet, "/api/v1/users/"+student.UserID.String()+"/clearance", other, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
