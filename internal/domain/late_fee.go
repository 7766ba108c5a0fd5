package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LateFeeRule charges FeePerDay for every late day when the days late fall in
// [DaysLateStart, DaysLateEnd].
type LateFeeRule struct {
	ID            int64           `json:"id" db:"id"`
	DaysLateStart int             `json:"daysLateStart" db:"days_late_start"`
	DaysLateEnd   int             `json:"daysLateEnd" db:"days_late_end"`
	FeePerDay     decimal.Decimal `json:"feePerDay" db:"fee_per_day"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

func (r *LateFeeRule) Applies(daysLate int) bool {
	return daysLate >= r.DaysLateStart && daysLate <= r.DaysLateEnd
}

// Overlaps reports whether the two day ranges share at least one day.
func (r *LateFeeRule) Overlaps(other *LateFeeRule) bool {
	return r.DaysLateStart <= other.DaysLateEnd && other.DaysLateStart <= r.DaysLateEnd
}

func (r *LateFeeRule) Validate() error {
	if r.DaysLateStart < 1 || r.DaysLateEnd < r.DaysLateStart {
		return fmt.Errorf("late fee rule: invalid range [%d, %d]", r.DaysLateStart, r.DaysLateEnd)
	}
	if r.FeePerDay.IsNegative() {
		return fmt.Errorf("late fee rule: negative fee per day")
	}
	return nil
}

type LateFeeRuleRequest struct {
	DaysLateStart int             `json:"daysLateStart" validate:"gte=1"`
	DaysLateEnd   int             `json:"daysLateEnd" validate:"gtefield=DaysLateStart"`
	FeePerDay     decimal.Decimal `json:"feePerDay" validate:"gte=0"`
}
