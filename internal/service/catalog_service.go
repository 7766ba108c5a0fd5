package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
	customError "github.com/segyhp/movie-rental/pkg/errors"
)

// CatalogService manages movies, users and late fee rules.
type CatalogService struct {
	movies   repository.MovieRepository
	users    repository.UserRepository
	rentals  repository.RentalRepository
	lateFees repository.LateFeeRepository
	tx       repository.Transactor
	clock    func() time.Time

	listeners []func(ctx context.Context)
}

func NewCatalogService(
	movies repository.MovieRepository,
	users repository.UserRepository,
	rentals repository.RentalRepository,
	lateFees repository.LateFeeRepository,
	tx repository.Transactor,
) *CatalogService {
	return &CatalogService{
		movies:   movies,
		users:    users,
		rentals:  rentals,
		lateFees: lateFees,
		tx:       tx,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// AddListener registers fn to run after each committed movie or user change.
func (s *CatalogService) AddListener(fn func(ctx context.Context)) {
	s.listeners = append(s.listeners, fn)
}

func (s *CatalogService) notify(ctx context.Context) {
	for _, fn := range s.listeners {
		fn(ctx)
	}
}

// CreateMovie adds a title with every copy available.
func (s *CatalogService) CreateMovie(ctx context.Context, req *domain.CreateMovieRequest) (*domain.Movie, error) {
	var movie *domain.Movie

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		id, err := s.movies.NextID(ctx)
		if err != nil {
			return customError.WrapStoreError(err)
		}

		now := s.clock()
		created := &domain.Movie{
			ID:              id,
			Title:           strings.TrimSpace(req.Title),
			Genre:           strings.TrimSpace(req.Genre),
			UnitPrice:       domain.RoundPrice(req.UnitPrice),
			TotalCopies:     req.TotalCopies,
			AvailableCopies: req.TotalCopies,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.movies.Create(ctx, created); err != nil {
			return customError.WrapStoreError(err)
		}

		movie = created
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.notify(ctx)
	return movie, nil
}

func (s *CatalogService) GetMovie(ctx context.Context, id int64) (*domain.Movie, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapMovieNotFound(id))
	}
	return movie, nil
}

func (s *CatalogService) ListMovies(ctx context.Context) ([]*domain.Movie, error) {
	movies, err := s.movies.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}
	return movies, nil
}

// UpdateMovie edits a title. Available copies follow the new total minus the
// copies currently rented out.
func (s *CatalogService) UpdateMovie(ctx context.Context, id int64, req *domain.UpdateMovieRequest) (*domain.Movie, error) {
	var movie *domain.Movie

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.movies.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, customError.WrapMovieNotFound(id))
		}

		available := req.TotalCopies - current.RentedOut()
		if available < 0 {
			return customError.WrapInvalidOperation(customError.ReasonCopiesInUse)
		}

		current.Title = strings.TrimSpace(req.Title)
		current.Genre = strings.TrimSpace(req.Genre)
		current.UnitPrice = domain.RoundPrice(req.UnitPrice)
		current.TotalCopies = req.TotalCopies
		current.AvailableCopies = available

		if err := s.movies.Save(ctx, current); err != nil {
			return customError.WrapStoreError(err)
		}

		movie = current
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.notify(ctx)
	return movie, nil
}

// DeleteMovie removes a title nobody currently holds.
func (s *CatalogService) DeleteMovie(ctx context.Context, id int64) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		movie, err := s.movies.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, customError.WrapMovieNotFound(id))
		}

		active, err := s.hasActiveRental(ctx, func(r *domain.Rental) bool { return r.MovieID == id })
		if err != nil {
			return err
		}
		if active || movie.RentedOut() > 0 {
			return customError.WrapInvalidOperation(customError.ReasonMovieHasRentals)
		}

		return lookupError(s.movies.Delete(ctx, id), customError.WrapMovieNotFound(id))
	})
	if err != nil {
		return classify(err)
	}

	s.notify(ctx)
	return nil
}

// CreateUser registers a member. Emails are unique, ignoring case.
func (s *CatalogService) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	var user *domain.User

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		email := normalizeEmail(req.Email)
		if err := s.ensureEmailFree(ctx, email, 0); err != nil {
			return err
		}

		id, err := s.users.NextID(ctx)
		if err != nil {
			return customError.WrapStoreError(err)
		}

		now := s.clock()
		created := &domain.User{
			ID:        id,
			Name:      strings.TrimSpace(req.Name),
			Email:     email,
			Phone:     strings.TrimSpace(req.Phone),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.users.Create(ctx, created); err != nil {
			return customError.WrapStoreError(err)
		}

		user = created
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.notify(ctx)
	return user, nil
}

func (s *CatalogService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapUserNotFound(id))
	}
	return user, nil
}

func (s *CatalogService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}
	return users, nil
}

// UpdateUser changes contact details only; the active rental count belongs to the ledger.
func (s *CatalogService) UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	var user *domain.User

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.users.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, customError.WrapUserNotFound(id))
		}

		email := normalizeEmail(req.Email)
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return err
		}

		current.Name = strings.TrimSpace(req.Name)
		current.Email = email
		current.Phone = strings.TrimSpace(req.Phone)
		current.UpdatedAt = s.clock()

		if err := s.users.Save(ctx, current); err != nil {
			return customError.WrapStoreError(err)
		}

		user = current
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.notify(ctx)
	return user, nil
}

func (s *CatalogService) DeleteUser(ctx context.Context, id int64) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, customError.WrapUserNotFound(id))
		}
		if user.ActiveRentals > 0 {
			return customError.WrapInvalidOperation(customError.ReasonUserHasRentals)
		}

		return lookupError(s.users.Delete(ctx, id), customError.WrapUserNotFound(id))
	})
	if err != nil {
		return classify(err)
	}

	s.notify(ctx)
	return nil
}

// CreateLateFee adds a tiered late fee rule. Ranges may not overlap.
func (s *CatalogService) CreateLateFee(ctx context.Context, req *domain.LateFeeRuleRequest) (*domain.LateFeeRule, error) {
	var rule *domain.LateFeeRule

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		candidate := &domain.LateFeeRule{
			DaysLateStart: req.DaysLateStart,
			DaysLateEnd:   req.DaysLateEnd,
			FeePerDay:     domain.RoundPrice(req.FeePerDay),
			CreatedAt:     s.clock(),
		}
		if err := s.checkLateFee(ctx, candidate); err != nil {
			return err
		}

		id, err := s.lateFees.NextID(ctx)
		if err != nil {
			return customError.WrapStoreError(err)
		}
		candidate.ID = id

		if err := s.lateFees.Create(ctx, candidate); err != nil {
			return customError.WrapStoreError(err)
		}

		rule = candidate
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return rule, nil
}

func (s *CatalogService) ListLateFees(ctx context.Context) ([]*domain.LateFeeRule, error) {
	rules, err := s.lateFees.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}
	return rules, nil
}

func (s *CatalogService) UpdateLateFee(ctx context.Context, id int64, req *domain.LateFeeRuleRequest) (*domain.LateFeeRule, error) {
	var rule *domain.LateFeeRule

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.lateFees.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, customError.WrapLateFeeNotFound(id))
		}

		current.DaysLateStart = req.DaysLateStart
		current.DaysLateEnd = req.DaysLateEnd
		current.FeePerDay = domain.RoundPrice(req.FeePerDay)
		if err := s.checkLateFee(ctx, current); err != nil {
			return err
		}

		if err := s.lateFees.Save(ctx, current); err != nil {
			return customError.WrapStoreError(err)
		}

		rule = current
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return rule, nil
}

func (s *CatalogService) DeleteLateFee(ctx context.Context, id int64) error {
	err := s.lateFees.Delete(ctx, id)
	if err != nil {
		return lookupError(err, customError.WrapLateFeeNotFound(id))
	}
	return nil
}

// checkLateFee validates the range of rule and rejects overlaps with the other stored rules.
func (s *CatalogService) checkLateFee(ctx context.Context, rule *domain.LateFeeRule) error {
	if err := rule.Validate(); err != nil {
		return customError.WrapInvalidOperation(customError.ReasonInvalidLateFeeRule)
	}

	existing, err := s.lateFees.List(ctx)
	if err != nil {
		return customError.WrapStoreError(err)
	}
	for _, other := range existing {
		if other.ID != rule.ID && rule.Overlaps(other) {
			return customError.WrapInvalidOperation(customError.ReasonLateFeeOverlap)
		}
	}
	return nil
}

func (s *CatalogService) ensureEmailFree(ctx context.Context, email string, owner int64) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return customError.WrapStoreError(err)
	case existing.ID != owner:
		return customError.WrapInvalidOperation(customError.ReasonEmailRegistered)
	}
	return nil
}

func (s *CatalogService) hasActiveRental(ctx context.Context, match func(*domain.Rental) bool) (bool, error) {
	rentals, err := s.rentals.List(ctx)
	if err != nil {
		return false, customError.WrapStoreError(err)
	}
	for _, r := range rentals {
		if r.IsActive() && match(r) {
			return true, nil
		}
	}
	return false, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
