package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
	customError "github.com/segyhp/movie-rental/pkg/errors"
	"github.com/segyhp/movie-rental/pkg/utils"
)

const defaultRecentLimit = 5

type ReportService struct {
	movies      repository.MovieRepository
	users       repository.UserRepository
	rentals     repository.RentalRepository
	policies    PolicyProvider
	cache       repository.StatsCache
	cacheTTL    time.Duration
	recentLimit int
	log         *slog.Logger
}

func NewReportService(
	movies repository.MovieRepository,
	users repository.UserRepository,
	rentals repository.RentalRepository,
	policies PolicyProvider,
	cache repository.StatsCache,
	cacheTTL time.Duration,
	recentLimit int,
	log *slog.Logger,
) *ReportService {
	if cache == nil {
		cache = repository.NoopStatsCache{}
	}
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ReportService{
		movies:      movies,
		users:       users,
		rentals:     rentals,
		policies:    policies,
		cache:       cache,
		cacheTTL:    cacheTTL,
		recentLimit: recentLimit,
		log:         log,
	}
}

// Attach drops the cached dashboard whenever the ledger commits a change.
func (s *ReportService) Attach(ledger *Ledger) {
	ledger.AddListener(func(ctx context.Context, _ *domain.Rental) {
		s.Invalidate(ctx)
	})
}

// AttachCatalog drops the cached dashboard after movie and user changes.
func (s *ReportService) AttachCatalog(catalog *CatalogService) {
	catalog.AddListener(s.Invalidate)
}

// Invalidate drops the cached dashboard. Cache failures are logged, not returned.
func (s *ReportService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WarnContext(ctx, "dashboard cache invalidation failed", "err", customError.WrapCacheError(err))
	}
}

// Dashboard summarizes the catalog and the rentals as of now. Only the
// clock-independent snapshot is cached; overdue counts, statuses and prices
// are derived against now on every call.
func (s *ReportService) Dashboard(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	snap, err := s.dashboardSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{
		TotalMovies:   snap.TotalMovies,
		TotalUsers:    snap.TotalUsers,
		ActiveRentals: len(snap.ActiveDueDates),
		RecentRentals: make([]domain.RentalLine, 0, len(snap.Recent)),
	}
	for _, due := range snap.ActiveDueDates {
		if utils.IsDateOverdue(due, now) {
			stats.OverdueRentals++
		}
	}
	for i := range snap.Recent {
		r := &snap.Recent[i]
		stats.RecentRentals = append(stats.RecentRentals,
			rentalLine(&r.Rental, r.MovieTitle, r.UserName, r.UnitPrice, policy, now))
	}

	return stats, nil
}

func (s *ReportService) dashboardSnapshot(ctx context.Context) (*domain.DashboardSnapshot, error) {
	cached, ok, err := s.cache.GetDashboard(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "dashboard cache read failed", "err", customError.WrapCacheError(err))
	} else if ok {
		return cached, nil
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	dash := &domain.DashboardSnapshot{
		TotalMovies:    len(snap.movies),
		TotalUsers:     len(snap.users),
		ActiveDueDates: []time.Time{},
		Recent:         []domain.RecentRental{},
	}
	for _, r := range snap.rentals {
		if r.IsActive() {
			dash.ActiveDueDates = append(dash.ActiveDueDates, r.DueDate)
		}
	}

	recent := make([]*domain.Rental, len(snap.rentals))
	copy(recent, snap.rentals)
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].RentalDate.Equal(recent[j].RentalDate) {
			return recent[i].ID > recent[j].ID
		}
		return recent[i].RentalDate.After(recent[j].RentalDate)
	})
	if len(recent) > s.recentLimit {
		recent = recent[:s.recentLimit]
	}
	for _, r := range recent {
		entry := domain.RecentRental{Rental: *r}
		if u, ok := snap.users[r.UserID]; ok {
			entry.UserName = u.Name
		}
		if m, ok := snap.movies[r.MovieID]; ok {
			price := m.UnitPrice
			entry.MovieTitle = m.Title
			entry.UnitPrice = &price
		}
		dash.Recent = append(dash.Recent, entry)
	}

	if err := s.cache.SetDashboard(ctx, dash, s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "dashboard cache write failed", "err", customError.WrapCacheError(err))
	}

	return dash, nil
}

// Revenue totals the prices stored on returned rentals.
func (s *ReportService) Revenue(ctx context.Context) (*domain.RevenueReport, error) {
	rentals, err := s.rentals.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	report := &domain.RevenueReport{
		BaseRevenue:    decimal.Zero,
		LateFeeRevenue: decimal.Zero,
		TotalRevenue:   decimal.Zero,
	}
	for _, r := range rentals {
		if r.Status != domain.RentalStatusReturned || r.TotalPrice == nil {
			continue
		}
		report.ReturnedRentals++
		report.TotalRevenue = report.TotalRevenue.Add(*r.TotalPrice)
		if r.LateFee != nil {
			report.LateFeeRevenue = report.LateFeeRevenue.Add(*r.LateFee)
		}
	}
	report.BaseRevenue = report.TotalRevenue.Sub(report.LateFeeRevenue)

	return report, nil
}

// PopularMovies ranks movies by how often they were rented, most first.
func (s *ReportService) PopularMovies(ctx context.Context, limit int) ([]domain.PopularMovie, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int)
	for _, r := range snap.rentals {
		counts[r.MovieID]++
	}

	popular := make([]domain.PopularMovie, 0, len(counts))
	for movieID, n := range counts {
		entry := domain.PopularMovie{MovieID: movieID, RentalCount: n}
		if m, ok := snap.movies[movieID]; ok {
			entry.Title = m.Title
		}
		popular = append(popular, entry)
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].RentalCount == popular[j].RentalCount {
			return popular[i].MovieID < popular[j].MovieID
		}
		return popular[i].RentalCount > popular[j].RentalCount
	})

	if limit > 0 && len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}

// LateReturns lists the rentals overdue at now with the fee they would owe if returned now.
func (s *ReportService) LateReturns(ctx context.Context, now time.Time) ([]domain.LateReturn, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy(ctx)
	if err != nil {
		return nil, err
	}

	late := []domain.LateReturn{}
	for _, r := range snap.rentals {
		if !r.IsOverdue(now) {
			continue
		}
		late = append(late, domain.LateReturn{
			RentalLine:     snap.line(r, policy, now),
			ProvisionalFee: LateFeeFor(r, policy, now),
		})
	}
	sort.SliceStable(late, func(i, j int) bool { return late[i].DaysOverdue > late[j].DaysOverdue })

	return late, nil
}

func (s *ReportService) policy(ctx context.Context) (LateFeePolicy, error) {
	policy, err := s.policies.Current(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}
	return policy, nil
}

type snapshot struct {
	movies  map[int64]*domain.Movie
	users   map[int64]*domain.User
	rentals []*domain.Rental
}

func (s *ReportService) load(ctx context.Context) (*snapshot, error) {
	movies, err := s.movies.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}
	rentals, err := s.rentals.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	snap := &snapshot{
		movies:  make(map[int64]*domain.Movie, len(movies)),
		users:   make(map[int64]*domain.User, len(users)),
		rentals: rentals,
	}
	for _, m := range movies {
		snap.movies[m.ID] = m
	}
	for _, u := range users {
		snap.users[u.ID] = u
	}
	return snap, nil
}

// line joins r with its movie title and user name. Deleted records leave the names empty.
func (snap *snapshot) line(r *domain.Rental, policy LateFeePolicy, now time.Time) domain.RentalLine {
	var title, name string
	var price *decimal.Decimal
	if u, ok := snap.users[r.UserID]; ok {
		name = u.Name
	}
	if m, ok := snap.movies[r.MovieID]; ok {
		title, price = m.Title, &m.UnitPrice
	}
	return rentalLine(r, title, name, price, policy, now)
}

// rentalLine annotates r at now. Returned rentals show their stored total,
// outstanding ones the unit price plus the provisional late fee. Without a
// unit price the current price stays zero.
func rentalLine(r *domain.Rental, title, name string, unitPrice *decimal.Decimal, policy LateFeePolicy, now time.Time) domain.RentalLine {
	line := domain.RentalLine{
		RentalView: domain.NewRentalView(*r, now),
		MovieTitle: title,
		UserName:   name,
	}
	switch {
	case r.TotalPrice != nil:
		line.CurrentPrice = *r.TotalPrice
	case unitPrice != nil:
		line.CurrentPrice = ComputeTotalPrice(r, &domain.Movie{UnitPrice: *unitPrice}, policy, now)
	}
	return line
}
