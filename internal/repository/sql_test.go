package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var movieCols = []string{"id", "title", "genre", "unit_price", "total_copies", "available_copies", "version", "created_at", "updated_at"}

func TestMovieRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewMovieRepository(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM movies WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(1, "Heat", "Crime", "5.00", 2, 1, 3, created, created))

	movie, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Heat", movie.Title)
	assert.True(t, decimal.NewFromInt(5).Equal(movie.UnitPrice))
	assert.Equal(t, 1, movie.AvailableCopies)
	assert.Equal(t, 3, movie.Version)

	mock.ExpectQuery(`SELECT .+ FROM movies WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(movieCols))

	_, err = repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovieRepository_GetByIDRejectsCorruptRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewMovieRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM movies`).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(1, "Heat", "Crime", "5.00", 1, 2, 0, now, now))

	_, err := repo.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestMovieRepository_Save(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "version matches",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE movies`).
					WithArgs("Heat", "Crime", sqlmock.AnyArg(), 2, 0, sqlmock.AnyArg(), int64(1), 4).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "stale version",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE movies`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM movies WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			},
			wantErr: repository.ErrConflict,
		},
		{
			name: "missing row",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE movies`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM movies`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			},
			wantErr: repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setup(mock)

			movie := &domain.Movie{ID: 1, Title: "Heat", Genre: "Crime", UnitPrice: decimal.NewFromInt(5), TotalCopies: 2, Version: 4}
			err := repository.NewMovieRepository(db).Save(context.Background(), movie)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 4, movie.Version)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 5, movie.Version)
				assert.False(t, movie.UpdatedAt.IsZero())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMovieRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewMovieRepository(db)

	mock.ExpectExec(`DELETE FROM movies WHERE id = \$1`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM movies WHERE id = \$1`).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), 1))
	assert.ErrorIs(t, repo.Delete(context.Background(), 2), repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_Save(t *testing.T) {
	rental := &domain.Rental{
		ID:         7,
		MovieID:    1,
		UserID:     2,
		RentalDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		Status:     domain.RentalStatusActive,
	}

	t.Run("updates existing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE rentals`).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repository.NewRentalRepository(db).Save(context.Background(), rental))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inserts when no row matched", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE rentals`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO rentals`).
			WithArgs(int64(7), int64(1), int64(2), rental.RentalDate, rental.DueDate, domain.RentalStatusActive, nil, nil, nil).
			WillReturnResult(sqlmock.NewResult(7, 1))

		require.NoError(t, repository.NewRentalRepository(db).Save(context.Background(), rental))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE rentals`).WillReturnError(errors.New("connection reset"))

		err := repository.NewRentalRepository(db).Save(context.Background(), rental)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "update rental 7")
	})
}

func TestRentalRepository_NextID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(id\), 0\) \+ 1 FROM rentals`).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))

	id, err := repository.NewRentalRepository(db).NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestTransactor(t *testing.T) {
	boom := errors.New("boom")

	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM users`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM late_fees`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		users := repository.NewUserRepository(db)
		fees := repository.NewLateFeeRepository(db)
		err := repository.NewTransactor(db).WithinTransaction(context.Background(), func(ctx context.Context) error {
			if err := users.Delete(ctx, 1); err != nil {
				return err
			}
			return fees.Delete(ctx, 1)
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns the error unchanged", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repository.NewTransactor(db).WithinTransaction(context.Background(), func(ctx context.Context) error {
			return boom
		})

		assert.Same(t, boom, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested units join the outer transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		tx := repository.NewTransactor(db)
		calls := 0
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			return tx.WithinTransaction(ctx, func(ctx context.Context) error {
				calls++
				return nil
			})
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(boom)

		err := repository.NewTransactor(db).WithinTransaction(context.Background(), func(ctx context.Context) error {
			t.Fatal("fn must not run")
			return nil
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "active_rentals", "created_at", "updated_at"}).
			AddRow(1, "Ana", "ana@example.com", "", 2, now, now))

	user, err := repository.NewUserRepository(db).GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, 2, user.ActiveRentals)
}
