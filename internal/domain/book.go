package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BookStatusAvailable = "available"
	BookStatusArchived  = "archived"
)

const (
	CopyStatusAvailable = "available"
	CopyStatusBorrowed  = "borrowed"
	CopyStatusLost      = "lost"
)

// Book represents a catalog title. Copy counts are never stored on the
// book row; they are always derived from the copies table.
type Book struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ISBN      string          `json:"isbn" db:"isbn"`
	Title     string          `json:"title" db:"title"`
	Author    string          `json:"author" db:"author"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Category  string          `json:"category" db:"category"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Copy is one physical unit of a book. A lost copy stays in the table
// with status lost but leaves both the total and available pools.
type Copy struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CopyCounts holds the derived copy tally for one book.
type CopyCounts struct {
	Total     int `json:"total" db:"total"`
	Available int `json:"available" db:"available"`
	Borrowed  int `json:"borrowed" db:"borrowed"`
}

// DTOs for requests and responses

type AddBookRequest struct {
	ISBN          string          `json:"isbn" validate:"required"`
	Title         string          `json:"title" validate:"required"`
	Author        string          `json:"author" validate:"required"`
	Price         decimal.Decimal `json:"price" validate:"required,decimal_gt=0"`
	Category      string          `json:"category" validate:"required"`
	InitialCopies int             `json:"initial_copies" validate:"gte=0"`
}

type AdjustStockRequest struct {
	NewTotal int `json:"new_total" validate:"gte=0"`
}

// BookListing is the catalog projection consumed by listing/search UIs.
type BookListing struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ISBN            string          `json:"isbn" db:"isbn"`
	Title           string          `json:"title" db:"title"`
	Author          string          `json:"author" db:"author"`
	Price           decimal.Decimal `json:"price" db:"price"`
	Category        string          `json:"category" db:"category"`
	Status          string          `json:"status" db:"status"`
	TotalCopies     int             `json:"total_copies" db:"total_copies"`
	AvailableCopies int             `json:"available_copies" db:"available_copies"`
}

type BookFilter struct {
	Search   string
	Category string
}
