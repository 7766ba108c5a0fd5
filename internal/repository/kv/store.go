package kv

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
)

type datasetKey struct{}

// Store exposes the repository interfaces on top of a Backend.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) Movies() repository.MovieRepository     { return &movieRepo{s} }
func (s *Store) Users() repository.UserRepository       { return &userRepo{s} }
func (s *Store) Rentals() repository.RentalRepository   { return &rentalRepo{s} }
func (s *Store) LateFees() repository.LateFeeRepository { return &lateFeeRepo{s} }

// WithinTransaction runs fn against one copy of the dataset that is persisted
// in a single write when fn succeeds.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(datasetKey{}).(*Dataset); ok {
		return fn(ctx)
	}
	return s.backend.Update(ctx, func(ds *Dataset) error {
		return fn(context.WithValue(ctx, datasetKey{}, ds))
	})
}

// Import replaces the dataset with ds.
func (s *Store) Import(ctx context.Context, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	return s.backend.Update(ctx, func(current *Dataset) error {
		*current = *ds.Clone()
		return nil
	})
}

// Export returns a copy of the dataset.
func (s *Store) Export(ctx context.Context) (*Dataset, error) {
	var out *Dataset
	err := s.view(ctx, func(ds *Dataset) error {
		out = ds.Clone()
		return nil
	})
	return out, err
}

func (s *Store) view(ctx context.Context, fn func(ds *Dataset) error) error {
	if ds, ok := ctx.Value(datasetKey{}).(*Dataset); ok {
		return fn(ds)
	}
	return s.backend.View(ctx, fn)
}

func (s *Store) update(ctx context.Context, fn func(ds *Dataset) error) error {
	if ds, ok := ctx.Value(datasetKey{}).(*Dataset); ok {
		return fn(ds)
	}
	return s.backend.Update(ctx, fn)
}

func maxID[T any](items []T, id func(*T) int64) int64 {
	var highest int64
	for i := range items {
		if v := id(&items[i]); v > highest {
			highest = v
		}
	}
	return highest + 1
}

type movieRepo struct{ s *Store }

func (r *movieRepo) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := r.s.view(ctx, func(ds *Dataset) error {
		id = maxID(ds.Movies, func(m *domain.Movie) int64 { return m.ID })
		return nil
	})
	return id, err
}

func (r *movieRepo) Create(ctx context.Context, movie *domain.Movie) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		if ds.movieIndex(movie.ID) >= 0 {
			return repository.ErrConflict
		}
		ds.Movies = append(ds.Movies, *movie)
		return nil
	})
}

func (r *movieRepo) GetByID(ctx context.Context, id int64) (*domain.Movie, error) {
	var out *domain.Movie
	err := r.s.view(ctx, func(ds *Dataset) error {
		i := ds.movieIndex(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		m := ds.Movies[i]
		out = &m
		return nil
	})
	return out, err
}

func (r *movieRepo) List(ctx context.Context) ([]*domain.Movie, error) {
	var out []*domain.Movie
	err := r.s.view(ctx, func(ds *Dataset) error {
		for _, m := range ds.Movies {
			out = append(out, &m)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *movieRepo) Save(ctx context.Context, movie *domain.Movie) error {
	now := time.Now().UTC()
	err := r.s.update(ctx, func(ds *Dataset) error {
		i := ds.movieIndex(movie.ID)
		if i < 0 {
			return repository.ErrNotFound
		}
		if ds.Movies[i].Version != movie.Version {
			return repository.ErrConflict
		}
		stored := *movie
		stored.Version++
		stored.UpdatedAt = now
		ds.Movies[i] = stored
		return nil
	})
	if err != nil {
		return err
	}
	movie.Version++
	movie.UpdatedAt = now
	return nil
}

func (r *movieRepo) Delete(ctx context.Context, id int64) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		i := ds.movieIndex(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		ds.Movies = append(ds.Movies[:i], ds.Movies[i+1:]...)
		return nil
	})
}

type userRepo struct{ s *Store }

func (r *userRepo) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := r.s.view(ctx, func(ds *Dataset) error {
		id = maxID(ds.Users, func(u *domain.User) int64 { return u.ID })
		return nil
	})
	return id, err
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		if ds.userIndex(user.ID) >= 0 {
			return repository.ErrConflict
		}
		ds.Users = append(ds.Users, *user)
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.s.view(ctx, func(ds *Dataset) error {
		i := ds.userIndex(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		u := ds.Users[i]
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.s.view(ctx, func(ds *Dataset) error {
		for _, u := range ds.Users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) List(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	err := r.s.view(ctx, func(ds *Dataset) error {
		for _, u := range ds.Users {
			out = append(out, &u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *userRepo) Save(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	err := r.s.update(ctx, func(ds *Dataset) error {
		i := ds.userIndex(user.ID)
		if i < 0 {
			return repository.ErrNotFound
		}
		stored := *user
		stored.UpdatedAt = now
		ds.Users[i] = stored
		return nil
	})
	if err == nil {
		user.UpdatedAt = now
	}
	return err
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		i := ds.userIndex(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		ds.Users = append(ds.Users[:i], ds.Users[i+1:]...)
		return nil
	})
}

type rentalRepo struct{ s *Store }

func (r *rentalRepo) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := r.s.view(ctx, func(ds *Dataset) error {
		id = maxID(ds.Rentals, func(rental *domain.Rental) int64 { return rental.ID })
		return nil
	})
	return id, err
}

func (r *rentalRepo) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.s.view(ctx, func(ds *Dataset) error {
		i := ds.rentalIndex(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		rental := ds.Rentals[i]
		out = &rental
		return nil
	})
	return out, err
}

func (r *rentalRepo) List(ctx context.Context) ([]*domain.Rental, error) {
	var out []*domain.Rental
	err := r.s.view(ctx, func(ds *Dataset) error {
		for _, rental := range ds.Rentals {
			out = append(out, &rental)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *rentalRepo) Save(ctx context.Context, rental *domain.Rental) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		if i := ds.rentalIndex(rental.ID); i >= 0 {
			ds.Rentals[i] = *rental
			return nil
		}
		ds.Rentals = append(ds.Rentals, *rental)
		return nil
	})
}

type lateFeeRepo struct{ s *Store }

func (r *lateFeeRepo) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := r.s.view(ctx, func(ds *Dataset) error {
		id = maxID(ds.LateFees, func(rule *domain.LateFeeRule) int64 { return rule.ID })
		return nil
	})
	return id, err
}

func (r *lateFeeRepo) Create(ctx context.Context, rule *domain.LateFeeRule) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		if ds.lateFeeIndex(rule.ID) >= 0 {
			return repository.ErrConflict
		}
		ds.LateFees = append(ds.LateFees, *rule)
		return nil
	})
}

func (r *lateFeeRepo) GetByID(ctx context.Context, id int64) (*domain.LateFeeRule, error) {
	var out *domain.LateFeeRule
	err := r.s.view(ctx, func(ds *Dataset) error {
		i := ds.lateFeeIndex(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		rule := ds.LateFees[i]
		out = &rule
		return nil
	})
	return out, err
}

func (r *lateFeeRepo) List(ctx context.Context) ([]*domain.LateFeeRule, error) {
	var out []*domain.LateFeeRule
	err := r.s.view(ctx, func(ds *Dataset) error {
		for _, rule := range ds.LateFees {
			out = append(out, &rule)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DaysLateStart < out[j].DaysLateStart })
	return out, err
}

func (r *lateFeeRepo) Save(ctx context.Context, rule *domain.LateFeeRule) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		i := ds.lateFeeIndex(rule.ID)
		if i < 0 {
			return repository.ErrNotFound
		}
		ds.LateFees[i] = *rule
		return nil
	})
}

func (r *lateFeeRepo) Delete(ctx context.Context, id int64) error {
	return r.s.update(ctx, func(ds *Dataset) error {
		i := ds.lateFeeIndex(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		ds.LateFees = append(ds.LateFees[:i], ds.LateFees[i+1:]...)
		return nil
	})
}
