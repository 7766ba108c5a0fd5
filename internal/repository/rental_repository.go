package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/segyhp/movie-rental/internal/domain"
)

const rentalColumns = `id, movie_id, user_id, rental_date, due_date, status, return_date, late_fee, total_price`

type rentalRepository struct {
	db *sqlx.DB
}

func NewRentalRepository(db *sqlx.DB) RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, executor(ctx, r.db), "rentals")
}

func (r *rentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	q := executor(ctx, r.db)
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = ?`

	var rental domain.Rental
	if err := q.GetContext(ctx, &rental, q.Rebind(query), id); err != nil {
		return nil, notFoundOr(err, "query rental %d", id)
	}
	if err := rental.Validate(); err != nil {
		return nil, err
	}

	return &rental, nil
}

func (r *rentalRepository) List(ctx context.Context) ([]*domain.Rental, error) {
	var rentals []*domain.Rental
	if err := executor(ctx, r.db).SelectContext(ctx, &rentals, `SELECT `+rentalColumns+` FROM rentals ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "list rentals")
	}
	for _, rental := range rentals {
		if err := rental.Validate(); err != nil {
			return nil, err
		}
	}

	return rentals, nil
}

func (r *rentalRepository) Save(ctx context.Context, rental *domain.Rental) error {
	q := executor(ctx, r.db)
	update := `
		UPDATE rentals
		SET movie_id = ?, user_id = ?, rental_date = ?, due_date = ?, status = ?,
			return_date = ?, late_fee = ?, total_price = ?
		WHERE id = ?
	`

	result, err := q.ExecContext(ctx, q.Rebind(update),
		rental.MovieID,
		rental.UserID,
		rental.RentalDate,
		rental.DueDate,
		rental.Status,
		rental.ReturnDate,
		rental.LateFee,
		rental.TotalPrice,
		rental.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "update rental %d", rental.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if rows > 0 {
		return nil
	}

	insert := `
		INSERT INTO rentals (` + rentalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, q.Rebind(insert),
		rental.ID,
		rental.MovieID,
		rental.UserID,
		rental.RentalDate,
		rental.DueDate,
		rental.Status,
		rental.ReturnDate,
		rental.LateFee,
		rental.TotalPrice,
	)

	return errors.Wrapf(err, "insert rental %d", rental.ID)
}
