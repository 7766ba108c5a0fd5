package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/segyhp/movie-rental/internal/repository"
	"github.com/segyhp/movie-rental/internal/repository/kv"
)

// Seed inserts every record of ds whose ID is not stored yet and returns how
// many were inserted. Existing records are left untouched. The stored records
// together with the new ones must form a consistent dataset, otherwise nothing
// is inserted.
func (s *Storage) Seed(ctx context.Context, ds *kv.Dataset) (int, error) {
	if err := ds.ValidateRecords(); err != nil {
		return 0, errors.Wrap(err, "invalid seed")
	}

	inserted := 0
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		merged, err := s.mergeSeed(ctx, ds)
		if err != nil {
			return err
		}
		if err := merged.Validate(); err != nil {
			return errors.Wrap(err, "invalid seed")
		}

		for i := range ds.Movies {
			m := ds.Movies[i]
			if _, err := s.Movies.GetByID(ctx, m.ID); !errors.Is(err, repository.ErrNotFound) {
				if err != nil {
					return err
				}
				continue
			}
			if err := s.Movies.Create(ctx, &m); err != nil {
				return err
			}
			inserted++
		}

		for i := range ds.Users {
			u := ds.Users[i]
			if _, err := s.Users.GetByID(ctx, u.ID); !errors.Is(err, repository.ErrNotFound) {
				if err != nil {
					return err
				}
				continue
			}
			if err := s.Users.Create(ctx, &u); err != nil {
				return err
			}
			inserted++
		}

		for i := range ds.LateFees {
			rule := ds.LateFees[i]
			if _, err := s.LateFees.GetByID(ctx, rule.ID); !errors.Is(err, repository.ErrNotFound) {
				if err != nil {
					return err
				}
				continue
			}
			if err := s.LateFees.Create(ctx, &rule); err != nil {
				return err
			}
			inserted++
		}

		for i := range ds.Rentals {
			r := ds.Rentals[i]
			if _, err := s.Rentals.GetByID(ctx, r.ID); !errors.Is(err, repository.ErrNotFound) {
				if err != nil {
					return err
				}
				continue
			}
			if err := s.Rentals.Save(ctx, &r); err != nil {
				return err
			}
			inserted++
		}

		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "apply seed")
	}

	return inserted, nil
}

// mergeSeed returns the stored records plus the records of ds whose IDs are
// not stored. Stored returned rentals are left out since only active rentals
// take part in the consistency checks.
func (s *Storage) mergeSeed(ctx context.Context, ds *kv.Dataset) (*kv.Dataset, error) {
	merged := &kv.Dataset{}

	movies, err := s.Movies.List(ctx)
	if err != nil {
		return nil, err
	}
	storedMovies := make(map[int64]bool, len(movies))
	for _, m := range movies {
		merged.Movies = append(merged.Movies, *m)
		storedMovies[m.ID] = true
	}
	for _, m := range ds.Movies {
		if !storedMovies[m.ID] {
			merged.Movies = append(merged.Movies, m)
		}
	}

	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	storedUsers := make(map[int64]bool, len(users))
	for _, u := range users {
		merged.Users = append(merged.Users, *u)
		storedUsers[u.ID] = true
	}
	for _, u := range ds.Users {
		if !storedUsers[u.ID] {
			merged.Users = append(merged.Users, u)
		}
	}

	rules, err := s.LateFees.List(ctx)
	if err != nil {
		return nil, err
	}
	storedRules := make(map[int64]bool, len(rules))
	for _, rule := range rules {
		merged.LateFees = append(merged.LateFees, *rule)
		storedRules[rule.ID] = true
	}
	for _, rule := range ds.LateFees {
		if !storedRules[rule.ID] {
			merged.LateFees = append(merged.LateFees, rule)
		}
	}

	rentals, err := s.Rentals.List(ctx)
	if err != nil {
		return nil, err
	}
	storedRentals := make(map[int64]bool, len(rentals))
	for _, r := range rentals {
		storedRentals[r.ID] = true
		if r.IsActive() {
			merged.Rentals = append(merged.Rentals, *r)
		}
	}
	for _, r := range ds.Rentals {
		if !storedRentals[r.ID] {
			merged.Rentals = append(merged.Rentals, r)
		}
	}

	return merged, nil
}
