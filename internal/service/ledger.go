package service

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
	customError "github.com/segyhp/movie-rental/pkg/errors"
	"github.com/segyhp/movie-rental/pkg/utils"
)

// Listener is called after a rent or return has been committed.
type Listener func(ctx context.Context, rental *domain.Rental)

// Ledger owns the rental state transitions. It keeps no state of its own and
// works only through the injected repositories.
type Ledger struct {
	movies     repository.MovieRepository
	users      repository.UserRepository
	rentals    repository.RentalRepository
	tx         repository.Transactor
	policies   PolicyProvider
	loanPeriod time.Duration
	log        *slog.Logger
	listeners  []Listener
}

func NewLedger(
	movies repository.MovieRepository,
	users repository.UserRepository,
	rentals repository.RentalRepository,
	tx repository.Transactor,
	policies PolicyProvider,
	loanPeriod time.Duration,
	log *slog.Logger,
) *Ledger {
	if loanPeriod <= 0 {
		loanPeriod = domain.DefaultLoanPeriod
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ledger{
		movies:     movies,
		users:      users,
		rentals:    rentals,
		tx:         tx,
		policies:   policies,
		loanPeriod: loanPeriod,
		log:        log,
	}
}

// AddListener registers fn to run after each committed transition.
func (l *Ledger) AddListener(fn Listener) {
	l.listeners = append(l.listeners, fn)
}

func (l *Ledger) LoanPeriod() time.Duration {
	return l.loanPeriod
}

// Rent lends one copy of movieID to userID. The rental, the movie's available
// copies and the user's active rental count are written as one unit.
func (l *Ledger) Rent(ctx context.Context, movieID, userID int64, now time.Time) (*domain.Rental, error) {
	var rental *domain.Rental

	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		movie, err := l.movies.GetByID(ctx, movieID)
		if err != nil {
			return lookupError(err, customError.WrapMovieNotFound(movieID))
		}

		user, err := l.users.GetByID(ctx, userID)
		if err != nil {
			return lookupError(err, customError.WrapUserNotFound(userID))
		}

		if !movie.IsAvailable() {
			return customError.WrapInvalidOperation(customError.ReasonMovieUnavailable)
		}

		id, err := l.rentals.NextID(ctx)
		if err != nil {
			return customError.WrapStoreError(err)
		}

		created := &domain.Rental{
			ID:         id,
			MovieID:    movie.ID,
			UserID:     user.ID,
			RentalDate: now,
			DueDate:    utils.CalculateDueDate(now, l.loanPeriod),
			Status:     domain.RentalStatusActive,
		}

		movie.AvailableCopies--
		user.ActiveRentals++

		if err := l.persist(ctx, movie, user, created); err != nil {
			return err
		}

		rental = created
		return nil
	})
	if err != nil {
		err = classify(err)
		l.log.WarnContext(ctx, "rent failed", "movie_id", movieID, "user_id", userID, "err", err)
		return nil, err
	}

	l.log.InfoContext(ctx, "movie rented",
		"rental_id", rental.ID, "movie_id", movieID, "user_id", userID, "due_date", rental.DueDate)
	l.notify(ctx, rental)

	return rental, nil
}

// ReturnRental closes an active rental, stores its late fee and total price and
// gives the copy back to the catalog.
func (l *Ledger) ReturnRental(ctx context.Context, rentalID int64, now time.Time) (*domain.Rental, error) {
	var rental *domain.Rental

	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := l.rentals.GetByID(ctx, rentalID)
		if err != nil {
			return lookupError(err, customError.WrapInvalidOperation(customError.ReasonRentalNotActive))
		}
		if !current.IsActive() {
			return customError.WrapInvalidOperation(customError.ReasonRentalNotActive)
		}

		movie, err := l.movies.GetByID(ctx, current.MovieID)
		if err != nil {
			return lookupError(err, customError.WrapMovieNotFound(current.MovieID))
		}

		user, err := l.users.GetByID(ctx, current.UserID)
		if err != nil {
			return lookupError(err, customError.WrapUserNotFound(current.UserID))
		}

		if user.ActiveRentals <= 0 {
			return customError.WrapInvalidOperation(customError.ReasonCounterUnderflow)
		}
		if movie.AvailableCopies >= movie.TotalCopies {
			return customError.WrapInvalidOperation(customError.ReasonCopyOverflow)
		}

		policy, err := l.policies.Current(ctx)
		if err != nil {
			return customError.WrapStoreError(err)
		}

		returnDate := now
		current.Status = domain.RentalStatusReturned
		current.ReturnDate = &returnDate

		lateFee := LateFeeFor(current, policy, now)
		total := movie.UnitPrice.Add(lateFee)
		current.LateFee = &lateFee
		current.TotalPrice = &total

		movie.AvailableCopies++
		user.ActiveRentals--

		if err := l.persist(ctx, movie, user, current); err != nil {
			return err
		}

		rental = current
		return nil
	})
	if err != nil {
		err = classify(err)
		l.log.WarnContext(ctx, "return failed", "rental_id", rentalID, "err", err)
		return nil, err
	}

	l.log.InfoContext(ctx, "movie returned",
		"rental_id", rental.ID, "movie_id", rental.MovieID, "late_fee", rental.LateFee.String())
	l.notify(ctx, rental)

	return rental, nil
}

// ComputeStatus is the display status of rental at now.
func (l *Ledger) ComputeStatus(rental *domain.Rental, now time.Time) domain.RentalStatus {
	return rental.StatusAt(now)
}

// ComputeTotalPrice prices rental with policy at now without touching stored state.
func (l *Ledger) ComputeTotalPrice(rental *domain.Rental, movie *domain.Movie, policy LateFeePolicy, now time.Time) decimal.Decimal {
	return ComputeTotalPrice(rental, movie, policy, now)
}

// Quote returns the price breakdown of a rental. Returned rentals report the
// amounts stored at return time; outstanding ones are priced against now.
func (l *Ledger) Quote(ctx context.Context, rentalID int64, now time.Time) (*domain.RentalPriceResponse, error) {
	rental, err := l.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, lookupError(err, customError.WrapRentalNotFound(rentalID))
	}

	movie, err := l.movies.GetByID(ctx, rental.MovieID)
	if err != nil {
		return nil, lookupError(err, customError.WrapMovieNotFound(rental.MovieID))
	}

	quote := &domain.RentalPriceResponse{
		RentalID:  rental.ID,
		Status:    rental.StatusAt(now),
		BasePrice: movie.UnitPrice,
	}

	if rental.TotalPrice != nil && rental.LateFee != nil {
		quote.LateFee = *rental.LateFee
		quote.TotalPrice = *rental.TotalPrice
		quote.BasePrice = rental.TotalPrice.Sub(*rental.LateFee)
		return quote, nil
	}

	policy, err := l.policies.Current(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}
	quote.LateFee = LateFeeFor(rental, policy, now)
	quote.TotalPrice = movie.UnitPrice.Add(quote.LateFee)

	return quote, nil
}

// GetRental returns one rental annotated at now.
func (l *Ledger) GetRental(ctx context.Context, rentalID int64, now time.Time) (*domain.RentalView, error) {
	rental, err := l.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, lookupError(err, customError.WrapRentalNotFound(rentalID))
	}
	view := domain.NewRentalView(*rental, now)
	return &view, nil
}

// ListRentals yields every rental annotated with its status at now.
func (l *Ledger) ListRentals(ctx context.Context, now time.Time) (iter.Seq[domain.RentalView], error) {
	rentals, err := l.rentals.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	return func(yield func(domain.RentalView) bool) {
		for _, r := range rentals {
			if !yield(domain.NewRentalView(*r, now)) {
				return
			}
		}
	}, nil
}

// ListActiveRentals yields rentals whose stored status is active, overdue or not.
func (l *Ledger) ListActiveRentals(ctx context.Context, now time.Time) (iter.Seq[domain.RentalView], error) {
	all, err := l.ListRentals(ctx, now)
	if err != nil {
		return nil, err
	}
	return filterViews(all, func(v domain.RentalView) bool { return v.IsActive() }), nil
}

// ListOverdue yields the active rentals that are overdue at now.
func (l *Ledger) ListOverdue(ctx context.Context, now time.Time) (iter.Seq[domain.RentalView], error) {
	active, err := l.ListActiveRentals(ctx, now)
	if err != nil {
		return nil, err
	}
	return filterViews(active, func(v domain.RentalView) bool {
		return v.DisplayStatus == domain.RentalStatusOverdue
	}), nil
}

func (l *Ledger) persist(ctx context.Context, movie *domain.Movie, user *domain.User, rental *domain.Rental) error {
	if err := l.movies.Save(ctx, movie); err != nil {
		return customError.WrapStoreError(err)
	}
	if err := l.users.Save(ctx, user); err != nil {
		return customError.WrapStoreError(err)
	}
	if err := l.rentals.Save(ctx, rental); err != nil {
		return customError.WrapStoreError(err)
	}
	return nil
}

func (l *Ledger) notify(ctx context.Context, rental *domain.Rental) {
	for _, fn := range l.listeners {
		fn(ctx, rental)
	}
}

func filterViews(seq iter.Seq[domain.RentalView], keep func(domain.RentalView) bool) iter.Seq[domain.RentalView] {
	return func(yield func(domain.RentalView) bool) {
		for v := range seq {
			if keep(v) && !yield(v) {
				return
			}
		}
	}
}

// lookupError maps a missing record to notFound and any other failure to a store error.
func lookupError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return customError.WrapStoreError(err)
}

// classify leaves business errors alone and reports the rest, such as a failed
// commit, as collaborator failures.
func classify(err error) error {
	if customError.IsBusinessError(err) {
		return err
	}
	return customError.WrapStoreError(err)
}
