package utils

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// CalculateDueDate returns the date a rental starting at rentalDate must be back.
func CalculateDueDate(rentalDate time.Time, loanPeriod time.Duration) time.Time {
	return rentalDate.Add(loanPeriod)
}

// LoanPeriodFromDays converts a configured number of days to a duration.
func LoanPeriodFromDays(days int) time.Duration {
	return time.Duration(days) * day
}

// DaysLate counts started days between dueDate and end. Zero when end is not after dueDate.
func DaysLate(dueDate, end time.Time) int {
	if !end.After(dueDate) {
		return 0
	}
	late := end.Sub(dueDate)
	return int(math.Ceil(late.Hours() / 24))
}

// IsDateOverdue checks if dueDate lies strictly before now
func IsDateOverdue(dueDate, now time.Time) bool {
	return dueDate.Before(now)
}

// IsDueWithin reports whether dueDate falls in [now, now+window].
func IsDueWithin(dueDate, now time.Time, window time.Duration) bool {
	return !dueDate.Before(now) && !dueDate.After(now.Add(window))
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
