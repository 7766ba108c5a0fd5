package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places a stored price keeps.
const PriceScale = 2

// RoundPrice rounds an amount to PriceScale places, half away from zero,
// the way the SQL backends store it.
func RoundPrice(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(PriceScale)
}

// Movie represents a catalog entry
type Movie struct {
	ID              int64           `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	Genre           string          `json:"genre" db:"genre"`
	UnitPrice       decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TotalCopies     int             `json:"totalCopies" db:"total_copies"`
	AvailableCopies int             `json:"availableCopies" db:"available_copies"`
	Version         int             `json:"version" db:"version"` // optimistic locking
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsAvailable reports whether at least one copy can be rented.
func (m *Movie) IsAvailable() bool {
	return m.AvailableCopies > 0
}

// RentedOut is the number of copies currently held by active rentals.
func (m *Movie) RentedOut() int {
	return m.TotalCopies - m.AvailableCopies
}

// Validate checks the record shape read from a store.
func (m *Movie) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("movie: invalid id %d", m.ID)
	}
	if m.TotalCopies < 0 {
		return fmt.Errorf("movie %d: negative total copies", m.ID)
	}
	if m.AvailableCopies < 0 || m.AvailableCopies > m.TotalCopies {
		return fmt.Errorf("movie %d: available copies %d outside [0, %d]", m.ID, m.AvailableCopies, m.TotalCopies)
	}
	if m.UnitPrice.IsNegative() {
		return fmt.Errorf("movie %d: negative unit price", m.ID)
	}
	return nil
}

// DTOs for requests

type CreateMovieRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Genre       string          `json:"genre" validate:"required,max=100"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	TotalCopies int             `json:"totalCopies" validate:"gte=0"`
}

type UpdateMovieRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Genre       string          `json:"genre" validate:"required,max=100"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	TotalCopies int             `json:"totalCopies" validate:"gte=0"`
}
