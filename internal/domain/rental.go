package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/movie-rental/pkg/utils"
)

type RentalStatus string

// Stored statuses. RentalStatusOverdue is never persisted, it is derived at read time.
const (
	RentalStatusActive   RentalStatus = "active"
	RentalStatusReturned RentalStatus = "returned"
	RentalStatusOverdue  RentalStatus = "overdue"
)

const DefaultLoanPeriod = 7 * 24 * time.Hour

// Rental represents one copy of a movie lent to a user
type Rental struct {
	ID         int64            `json:"id" db:"id"`
	MovieID    int64            `json:"movieId" db:"movie_id"`
	UserID     int64            `json:"userId" db:"user_id"`
	RentalDate time.Time        `json:"rentalDate" db:"rental_date"`
	DueDate    time.Time        `json:"dueDate" db:"due_date"`
	Status     RentalStatus     `json:"status" db:"status"`
	ReturnDate *time.Time       `json:"returnDate,omitempty" db:"return_date"`
	LateFee    *decimal.Decimal `json:"lateFee,omitempty" db:"late_fee"`
	TotalPrice *decimal.Decimal `json:"totalPrice,omitempty" db:"total_price"`
}

// StatusAt derives the display status of the rental at now. It has no side effects.
func (r *Rental) StatusAt(now time.Time) RentalStatus {
	if r.ReturnDate != nil {
		return RentalStatusReturned
	}
	if r.DueDate.Before(now) {
		return RentalStatusOverdue
	}
	return RentalStatusActive
}

// IsActive reports the stored status, independent of overdue-ness.
func (r *Rental) IsActive() bool {
	return r.Status == RentalStatusActive
}

// IsOverdue is true iff the rental is active and past its due date at now.
func (r *Rental) IsOverdue(now time.Time) bool {
	return r.IsActive() && r.DueDate.Before(now)
}

// DaysLate counts whole days past the due date, measured at the return date
// for returned rentals and at now for outstanding ones.
func (r *Rental) DaysLate(now time.Time) int {
	end := now
	if r.ReturnDate != nil {
		end = *r.ReturnDate
	}
	return utils.DaysLate(r.DueDate, end)
}

// Validate checks the record shape read from a store.
func (r *Rental) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("rental: invalid id %d", r.ID)
	}
	if r.MovieID <= 0 || r.UserID <= 0 {
		return fmt.Errorf("rental %d: missing movie or user reference", r.ID)
	}
	switch r.Status {
	case RentalStatusActive:
		if r.ReturnDate != nil {
			return fmt.Errorf("rental %d: active rental has a return date", r.ID)
		}
	case RentalStatusReturned:
		if r.ReturnDate == nil {
			return fmt.Errorf("rental %d: returned rental has no return date", r.ID)
		}
	default:
		return fmt.Errorf("rental %d: unknown status %q", r.ID, r.Status)
	}
	if r.DueDate.Before(r.RentalDate) {
		return fmt.Errorf("rental %d: due date before rental date", r.ID)
	}
	return nil
}

// RentalView is a rental annotated with its derived status
type RentalView struct {
	Rental
	DisplayStatus RentalStatus `json:"displayStatus"`
	DaysOverdue   int          `json:"daysOverdue"`
}

// NewRentalView annotates r as seen at now.
func NewRentalView(r Rental, now time.Time) RentalView {
	view := RentalView{
		Rental:        r,
		DisplayStatus: r.StatusAt(now),
	}
	if view.DisplayStatus == RentalStatusOverdue {
		view.DaysOverdue = r.DaysLate(now)
	}
	return view
}

// DTOs for requests and responses

type RentRequest struct {
	MovieID int64 `json:"movieId" validate:"required,gt=0"`
	UserID  int64 `json:"userId" validate:"required,gt=0"`
}

type RentalPriceResponse struct {
	RentalID   int64           `json:"rentalId"`
	Status     RentalStatus    `json:"status"`
	BasePrice  decimal.Decimal `json:"basePrice"`
	LateFee    decimal.Decimal `json:"lateFee"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}
