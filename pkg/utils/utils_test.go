package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDueDate(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		startDate  time.Time
		loanPeriod time.Duration
		expected   time.Time
	}{
		{
			name:       "default week",
			startDate:  baseDate,
			loanPeriod: LoanPeriodFromDays(7),
			expected:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "three days",
			startDate:  baseDate,
			loanPeriod: LoanPeriodFromDays(3),
			expected:   time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "crosses month end",
			startDate:  time.Date(2024, 1, 28, 15, 30, 0, 0, time.UTC),
			loanPeriod: LoanPeriodFromDays(7),
			expected:   time.Date(2024, 2, 4, 15, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateDueDate(tt.startDate, tt.loanPeriod)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		end      time.Time
		expected int
	}{
		{name: "before due date", end: due.Add(-time.Hour), expected: 0},
		{name: "exactly on due date", end: due, expected: 0},
		{name: "one hour late counts as a day", end: due.Add(time.Hour), expected: 1},
		{name: "two full days", end: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), expected: 2},
		{name: "two and a half days", end: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysLate(due, tt.end))
		})
	}
}

func TestIsDateOverdue(t *testing.T) {
	due := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsDateOverdue(due, due))
	assert.False(t, IsDateOverdue(due, due.Add(-time.Second)))
	assert.True(t, IsDateOverdue(due, due.Add(time.Second)))
}

func TestIsDueWithin(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	window := 48 * time.Hour

	assert.True(t, IsDueWithin(now.Add(24*time.Hour), now, window))
	assert.True(t, IsDueWithin(now.Add(window), now, window))
	assert.False(t, IsDueWithin(now.Add(-time.Minute), now, window))
	assert.False(t, IsDueWithin(now.Add(window+time.Minute), now, window))
}

func TestDecimalFromString(t *testing.T) {
	d, err := DecimalFromString("4.99")
	assert.NoError(t, err)
	assert.Equal(t, "4.99", d.String())

	_, err = DecimalFromString("abc")
	assert.Error(t, err)
}
