package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/segyhp/movie-rental/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a compare-and-swap save lost against a concurrent writer.
	ErrConflict = errors.New("record modified concurrently")
)

// MovieRepository defines the interface for catalog data operations
type MovieRepository interface {
	// NextID returns one more than the highest movie ID, or 1 when there are none
	NextID(ctx context.Context) (int64, error)

	// Create inserts a new movie
	Create(ctx context.Context, movie *domain.Movie) error

	// GetByID retrieves a movie by its ID
	GetByID(ctx context.Context, id int64) (*domain.Movie, error)

	// List retrieves all movies ordered by ID
	List(ctx context.Context) ([]*domain.Movie, error)

	// Save updates the movie only if its stored version still equals movie.Version,
	// then increments movie.Version.
	Save(ctx context.Context, movie *domain.Movie) error

	// Delete removes a movie
	Delete(ctx context.Context, id int64) error
}

// UserRepository defines the interface for member data operations
type UserRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}

// RentalRepository defines the interface for rental data operations
type RentalRepository interface {
	NextID(ctx context.Context) (int64, error)

	// GetByID retrieves a rental by its ID
	GetByID(ctx context.Context, id int64) (*domain.Rental, error)

	// List retrieves every rental ordered by ID
	List(ctx context.Context) ([]*domain.Rental, error)

	// Save inserts the rental or replaces the stored record with the same ID
	Save(ctx context.Context, rental *domain.Rental) error
}

// LateFeeRepository defines the interface for tiered late fee rules
type LateFeeRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, rule *domain.LateFeeRule) error
	GetByID(ctx context.Context, id int64) (*domain.LateFeeRule, error)
	// List returns rules ordered by DaysLateStart
	List(ctx context.Context) ([]*domain.LateFeeRule, error)
	Save(ctx context.Context, rule *domain.LateFeeRule) error
	Delete(ctx context.Context, id int64) error
}

// Transactor runs fn as one unit of work. Repository calls made with the ctx
// passed to fn either all persist or none do. If fn returns an error the unit
// is discarded and that error is returned unchanged.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatsCache keeps the clock-independent dashboard snapshot for a short time
type StatsCache interface {
	GetDashboard(ctx context.Context) (*domain.DashboardSnapshot, bool, error)
	SetDashboard(ctx context.Context, stats *domain.DashboardSnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
