package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
	"github.com/segyhp/movie-rental/internal/repository/kv"
	"github.com/segyhp/movie-rental/internal/repository/mocks"
)

func newReports(t *testing.T, cache repository.StatsCache) (*ReportService, *Ledger) {
	t.Helper()
	reports, ledger, _ := newReportsWithCatalog(t, cache)
	return reports, ledger
}

func newReportsWithCatalog(t *testing.T, cache repository.StatsCache) (*ReportService, *Ledger, *CatalogService) {
	t.Helper()
	store := kv.NewStore(kv.NewMemoryBackend(seedDataset()))
	policy := StaticPolicy{Policy: PerDayFee{Rate: decimal.NewFromInt(1)}}
	ledger := NewLedger(store.Movies(), store.Users(), store.Rentals(), store, policy, 0, nil)
	catalog := NewCatalogService(store.Movies(), store.Users(), store.Rentals(), store.LateFees(), store)

	reports := NewReportService(store.Movies(), store.Users(), store.Rentals(), policy, cache, time.Minute, 2, nil)
	reports.Attach(ledger)
	reports.AttachCatalog(catalog)
	return reports, ledger, catalog
}

func newRedisCache(t *testing.T) (repository.StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewRedisStatsCache(client), mr
}

const dashboardKey = "movierental:dashboard"

func rentSome(t *testing.T, ledger *Ledger) {
	t.Helper()
	ctx := context.Background()

	first, err := ledger.Rent(ctx, 2, 1, jan1)
	require.NoError(t, err)
	_, err = ledger.Rent(ctx, 2, 2, jan1.AddDate(0, 0, 1))
	require.NoError(t, err)
	_, err = ledger.Rent(ctx, 1, 2, jan1.AddDate(0, 0, 5))
	require.NoError(t, err)
	_, err = ledger.ReturnRental(ctx, first.ID, jan1.AddDate(0, 0, 9))
	require.NoError(t, err)
}

func TestReport_Dashboard(t *testing.T) {
	reports, ledger := newReports(t, nil)
	rentSome(t, ledger)

	stats, err := reports.Dashboard(context.Background(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalMovies)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveRentals)
	assert.Equal(t, 1, stats.OverdueRentals)
	require.Len(t, stats.RecentRentals, 2)
	assert.Equal(t, int64(3), stats.RecentRentals[0].ID)
	assert.Equal(t, "Heat", stats.RecentRentals[0].MovieTitle)
	assert.Equal(t, "Ben", stats.RecentRentals[0].UserName)
	assert.Equal(t, int64(2), stats.RecentRentals[1].ID)
	// Rented the 2nd, due the 9th, one day overdue on the 10th.
	assert.True(t, stats.RecentRentals[1].CurrentPrice.Equal(decimal.NewFromInt(5)))
}

func TestReport_DashboardCache(t *testing.T) {
	cached := &domain.DashboardSnapshot{TotalMovies: 42}

	t.Run("hit skips the store", func(t *testing.T) {
		cache := new(mocks.MockStatsCache)
		cache.On("GetDashboard", mock.Anything).Return(cached, true, nil)
		reports, _ := newReports(t, cache)

		stats, err := reports.Dashboard(context.Background(), jan1)
		require.NoError(t, err)
		assert.Equal(t, 42, stats.TotalMovies)
		cache.AssertNotCalled(t, "SetDashboard", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("miss stores the result", func(t *testing.T) {
		cache := new(mocks.MockStatsCache)
		cache.On("GetDashboard", mock.Anything).Return(nil, false, nil)
		cache.On("SetDashboard", mock.Anything, mock.MatchedBy(func(s *domain.DashboardSnapshot) bool {
			return s.TotalMovies == 3 && len(s.ActiveDueDates) == 0
		}), time.Minute).Return(nil)
		reports, _ := newReports(t, cache)

		_, err := reports.Dashboard(context.Background(), jan1)
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("cache failures fall back to the store", func(t *testing.T) {
		cache := new(mocks.MockStatsCache)
		cache.On("GetDashboard", mock.Anything).Return(nil, false, errors.New("redis down"))
		cache.On("SetDashboard", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
		reports, _ := newReports(t, cache)

		stats, err := reports.Dashboard(context.Background(), jan1)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalMovies)
	})

	t.Run("ledger changes invalidate", func(t *testing.T) {
		cache := new(mocks.MockStatsCache)
		cache.On("Invalidate", mock.Anything).Return(nil)
		_, ledger := newReports(t, cache)

		_, err := ledger.Rent(context.Background(), 2, 1, jan1)
		require.NoError(t, err)
		cache.AssertNumberOfCalls(t, "Invalidate", 1)
	})

	t.Run("catalog changes invalidate", func(t *testing.T) {
		cache := new(mocks.MockStatsCache)
		cache.On("Invalidate", mock.Anything).Return(nil)
		_, _, catalog := newReportsWithCatalog(t, cache)
		ctx := context.Background()

		_, err := catalog.CreateMovie(ctx, &domain.CreateMovieRequest{
			Title: "Ran", Genre: "Drama", UnitPrice: decimal.NewFromInt(3), TotalCopies: 1,
		})
		require.NoError(t, err)
		require.NoError(t, catalog.DeleteUser(ctx, 2))
		cache.AssertNumberOfCalls(t, "Invalidate", 2)

		require.Error(t, catalog.DeleteMovie(ctx, 99))
		cache.AssertNumberOfCalls(t, "Invalidate", 2)
	})
}

func TestReport_DashboardCacheFollowsClock(t *testing.T) {
	cache, mr := newRedisCache(t)
	reports, ledger := newReports(t, cache)
	ctx := context.Background()

	rental, err := ledger.Rent(ctx, 2, 1, jan1)
	require.NoError(t, err)

	// Due the 8th.
	before, err := reports.Dashboard(ctx, jan1.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, before.ActiveRentals)
	assert.Equal(t, 0, before.OverdueRentals)
	require.Len(t, before.RecentRentals, 1)
	assert.Equal(t, domain.RentalStatusActive, before.RecentRentals[0].DisplayStatus)
	assert.True(t, before.RecentRentals[0].CurrentPrice.Equal(decimal.NewFromInt(4)))
	require.True(t, mr.Exists(dashboardKey))

	// Same cached snapshot, read three days after the due date.
	after, err := reports.Dashboard(ctx, jan1.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.True(t, mr.Exists(dashboardKey))
	assert.Equal(t, 1, after.ActiveRentals)
	assert.Equal(t, 1, after.OverdueRentals)
	require.Len(t, after.RecentRentals, 1)
	line := after.RecentRentals[0]
	assert.Equal(t, rental.ID, line.ID)
	assert.Equal(t, domain.RentalStatusOverdue, line.DisplayStatus)
	assert.Equal(t, 3, line.DaysOverdue)
	assert.True(t, line.CurrentPrice.Equal(decimal.NewFromInt(7)), line.CurrentPrice.String())
}

func TestReport_DashboardCacheFollowsCatalog(t *testing.T) {
	cache, mr := newRedisCache(t)
	reports, _, catalog := newReportsWithCatalog(t, cache)
	ctx := context.Background()

	stats, err := reports.Dashboard(ctx, jan1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMovies)
	require.True(t, mr.Exists(dashboardKey))

	_, err = catalog.CreateMovie(ctx, &domain.CreateMovieRequest{
		Title: "Ran", Genre: "Drama", UnitPrice: decimal.NewFromInt(3), TotalCopies: 1,
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(dashboardKey))

	require.NoError(t, catalog.DeleteUser(ctx, 2))

	stats, err = reports.Dashboard(ctx, jan1)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalMovies)
	assert.Equal(t, 1, stats.TotalUsers)
}

func TestReport_Revenue(t *testing.T) {
	reports, ledger := newReports(t, nil)
	rentSome(t, ledger)

	report, err := reports.Revenue(context.Background())
	require.NoError(t, err)

	// Rental 1 was due the 8th and came back the 10th: price 4 plus 2 days at 1.
	assert.Equal(t, 1, report.ReturnedRentals)
	assert.True(t, report.TotalRevenue.Equal(decimal.NewFromInt(6)))
	assert.True(t, report.LateFeeRevenue.Equal(decimal.NewFromInt(2)))
	assert.True(t, report.BaseRevenue.Equal(decimal.NewFromInt(4)))
}

func TestReport_PopularMovies(t *testing.T) {
	reports, ledger := newReports(t, nil)
	rentSome(t, ledger)

	popular, err := reports.PopularMovies(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, popular, 1)
	assert.Equal(t, domain.PopularMovie{MovieID: 2, Title: "Alien", RentalCount: 2}, popular[0])

	all, err := reports.PopularMovies(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReport_LateReturns(t *testing.T) {
	reports, ledger := newReports(t, nil)
	rentSome(t, ledger)

	late, err := reports.LateReturns(context.Background(), time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, int64(2), late[0].ID)
	assert.Equal(t, 3, late[0].DaysOverdue)
	assert.True(t, late[0].ProvisionalFee.Equal(decimal.NewFromInt(3)))

	none, err := reports.LateReturns(context.Background(), jan1)
	require.NoError(t, err)
	assert.Empty(t, none)
}
