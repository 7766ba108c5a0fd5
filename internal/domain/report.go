package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalMovies    int          `json:"totalMovies"`
	TotalUsers     int          `json:"totalUsers"`
	ActiveRentals  int          `json:"activeRentals"`
	OverdueRentals int          `json:"overdueRentals"`
	RecentRentals  []RentalLine `json:"recentRentals"`
}

// DashboardSnapshot holds the dashboard inputs that do not depend on the
// clock. Overdue counts, display statuses and current prices are derived from
// it at read time.
type DashboardSnapshot struct {
	TotalMovies    int            `json:"totalMovies"`
	TotalUsers     int            `json:"totalUsers"`
	ActiveDueDates []time.Time    `json:"activeDueDates"`
	Recent         []RecentRental `json:"recent"`
}

// RecentRental is a stored rental with the catalog fields needed to show it.
// UnitPrice is nil when the movie has been deleted.
type RecentRental struct {
	Rental     Rental           `json:"rental"`
	MovieTitle string           `json:"movieTitle"`
	UserName   string           `json:"userName"`
	UnitPrice  *decimal.Decimal `json:"unitPrice,omitempty"`
}

// RentalLine is a rental view joined with the titles a listing shows.
type RentalLine struct {
	RentalView
	MovieTitle   string          `json:"movieTitle"`
	UserName     string          `json:"userName"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
}

type RevenueReport struct {
	ReturnedRentals int             `json:"returnedRentals"`
	BaseRevenue     decimal.Decimal `json:"baseRevenue"`
	LateFeeRevenue  decimal.Decimal `json:"lateFeeRevenue"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}

type PopularMovie struct {
	MovieID     int64  `json:"movieId"`
	Title       string `json:"title"`
	RentalCount int    `json:"rentalCount"`
}

type LateReturn struct {
	RentalLine
	ProvisionalFee decimal.Decimal `json:"provisionalFee"`
}
