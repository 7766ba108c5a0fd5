package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/segyhp/movie-rental/internal/domain"
)

const movieColumns = `id, title, genre, unit_price, total_copies, available_copies, version, created_at, updated_at`

type movieRepository struct {
	db *sqlx.DB
}

func NewMovieRepository(db *sqlx.DB) MovieRepository {
	return &movieRepository{db: db}
}

func (r *movieRepository) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, executor(ctx, r.db), "movies")
}

func (r *movieRepository) Create(ctx context.Context, movie *domain.Movie) error {
	q := executor(ctx, r.db)
	query := `
		INSERT INTO movies (` + movieColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, q.Rebind(query),
		movie.ID,
		movie.Title,
		movie.Genre,
		movie.UnitPrice,
		movie.TotalCopies,
		movie.AvailableCopies,
		movie.Version,
		movie.CreatedAt,
		movie.UpdatedAt,
	)

	return errors.Wrap(err, "insert movie")
}

func (r *movieRepository) GetByID(ctx context.Context, id int64) (*domain.Movie, error) {
	q := executor(ctx, r.db)
	query := `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`

	var movie domain.Movie
	if err := q.GetContext(ctx, &movie, q.Rebind(query), id); err != nil {
		return nil, notFoundOr(err, "query movie %d", id)
	}
	if err := movie.Validate(); err != nil {
		return nil, err
	}

	return &movie, nil
}

func (r *movieRepository) List(ctx context.Context) ([]*domain.Movie, error) {
	q := executor(ctx, r.db)
	query := `SELECT ` + movieColumns + ` FROM movies ORDER BY id`

	var movies []*domain.Movie
	if err := q.SelectContext(ctx, &movies, query); err != nil {
		return nil, errors.Wrap(err, "list movies")
	}
	for _, m := range movies {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	return movies, nil
}

func (r *movieRepository) Save(ctx context.Context, movie *domain.Movie) error {
	q := executor(ctx, r.db)
	query := `
		UPDATE movies
		SET title = ?, genre = ?, unit_price = ?, total_copies = ?, available_copies = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, q.Rebind(query),
		movie.Title,
		movie.Genre,
		movie.UnitPrice,
		movie.TotalCopies,
		movie.AvailableCopies,
		now,
		movie.ID,
		movie.Version,
	)
	if err != nil {
		return errors.Wrapf(err, "update movie %d", movie.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if rows == 0 {
		var count int
		if err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM movies WHERE id = ?`), movie.ID); err != nil {
			return errors.Wrapf(err, "check movie %d", movie.ID)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	movie.Version++
	movie.UpdatedAt = now
	return nil
}

func (r *movieRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, executor(ctx, r.db), "movies", id)
}
