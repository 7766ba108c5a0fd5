package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository/kv"
	"github.com/segyhp/movie-rental/internal/service"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, buf *bytes.Buffer) *Scheduler {
	t.Helper()

	day := 24 * time.Hour
	store := kv.NewStore(kv.NewMemoryBackend(&kv.Dataset{
		Movies: []domain.Movie{
			{ID: 1, Title: "Heat", UnitPrice: decimal.NewFromInt(5), TotalCopies: 3, AvailableCopies: 0},
		},
		Users: []domain.User{{ID: 1, Name: "Ana", ActiveRentals: 2}, {ID: 2, Name: "Ben", ActiveRentals: 1}},
		Rentals: []domain.Rental{
			{ID: 1, MovieID: 1, UserID: 1, RentalDate: jan1, DueDate: jan1.Add(7 * day), Status: domain.RentalStatusActive},
			{ID: 2, MovieID: 1, UserID: 1, RentalDate: jan1.Add(3 * day), DueDate: jan1.Add(10 * day), Status: domain.RentalStatusActive},
			{ID: 3, MovieID: 1, UserID: 2, RentalDate: jan1.Add(5 * day), DueDate: jan1.Add(12 * day), Status: domain.RentalStatusActive},
		},
	}))
	policy := service.StaticPolicy{Policy: service.PerDayFee{Rate: decimal.RequireFromString("0.5")}}
	ledger := service.NewLedger(store.Movies(), store.Users(), store.Rentals(), store, policy, 0, nil)

	s, err := New(ledger, policy, Config{
		OverdueSpec:    "0 0 0 * * *",
		ReminderSpec:   "0 0 9 * * *",
		ReminderWindow: 24 * time.Hour,
	}, slog.New(slog.NewJSONHandler(buf, nil)))
	require.NoError(t, err)
	return s
}

func TestSweepOverdue(t *testing.T) {
	var buf bytes.Buffer
	s := newScheduler(t, &buf)

	// The 10th at noon: rental 1 is 3 started days late, rental 2 is not yet late.
	notices, err := s.SweepOverdue(context.Background(), time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, notices, 1)
	assert.Equal(t, int64(1), notices[0].RentalID)
	assert.Equal(t, 3, notices[0].DaysOverdue)
	assert.True(t, notices[0].ProvisionalFee.Equal(decimal.RequireFromString("1.5")))
	assert.Contains(t, buf.String(), `"msg":"rental overdue"`)
}

func TestDueSoon(t *testing.T) {
	var buf bytes.Buffer
	s := newScheduler(t, &buf)

	reminders, err := s.DueSoon(context.Background(), time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, reminders, 1)
	assert.Equal(t, int64(2), reminders[0].RentalID)
	assert.Equal(t, int64(1), reminders[0].UserID)
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(nil, nil, Config{OverdueSpec: "every day", ReminderSpec: "0 0 9 * * *"}, slog.Default())
	assert.Error(t, err)
}

func TestRunLogsJobOutcome(t *testing.T) {
	var buf bytes.Buffer
	s := newScheduler(t, &buf)
	s.now = func() time.Time { return time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC) }

	s.run("overdue sweep", s.sweep)()

	assert.Contains(t, buf.String(), `"job":"overdue sweep"`)
	assert.Contains(t, buf.String(), `"matched":3`)
}
