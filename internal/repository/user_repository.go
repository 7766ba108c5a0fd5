package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/segyhp/movie-rental/internal/domain"
)

const userColumns = `id, name, email, phone, active_rentals, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, executor(ctx, r.db), "users")
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	q := executor(ctx, r.db)
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, q.Rebind(query),
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.ActiveRentals,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return errors.Wrap(err, "insert user")
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	q := executor(ctx, r.db)

	var user domain.User
	if err := q.GetContext(ctx, &user, q.Rebind(query), arg); err != nil {
		return nil, notFoundOr(err, "query user %v", arg)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := executor(ctx, r.db).SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	for _, u := range users {
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}

	return users, nil
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	q := executor(ctx, r.db)
	query := `
		UPDATE users
		SET name = ?, email = ?, phone = ?, active_rentals = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, q.Rebind(query),
		user.Name,
		user.Email,
		user.Phone,
		user.ActiveRentals,
		now,
		user.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "update user %d", user.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if rows == 0 {
		return ErrNotFound
	}

	user.UpdatedAt = now
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, executor(ctx, r.db), "users", id)
}
