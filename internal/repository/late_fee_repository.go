package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/segyhp/movie-rental/internal/domain"
)

const lateFeeColumns = `id, days_late_start, days_late_end, fee_per_day, created_at`

type lateFeeRepository struct {
	db *sqlx.DB
}

func NewLateFeeRepository(db *sqlx.DB) LateFeeRepository {
	return &lateFeeRepository{db: db}
}

func (r *lateFeeRepository) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, executor(ctx, r.db), "late_fees")
}

func (r *lateFeeRepository) Create(ctx context.Context, rule *domain.LateFeeRule) error {
	q := executor(ctx, r.db)
	query := `INSERT INTO late_fees (` + lateFeeColumns + `) VALUES (?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, q.Rebind(query),
		rule.ID,
		rule.DaysLateStart,
		rule.DaysLateEnd,
		rule.FeePerDay,
		rule.CreatedAt,
	)

	return errors.Wrap(err, "insert late fee rule")
}

func (r *lateFeeRepository) GetByID(ctx context.Context, id int64) (*domain.LateFeeRule, error) {
	q := executor(ctx, r.db)

	var rule domain.LateFeeRule
	if err := q.GetContext(ctx, &rule, q.Rebind(`SELECT `+lateFeeColumns+` FROM late_fees WHERE id = ?`), id); err != nil {
		return nil, notFoundOr(err, "query late fee rule %d", id)
	}

	return &rule, nil
}

func (r *lateFeeRepository) List(ctx context.Context) ([]*domain.LateFeeRule, error) {
	var rules []*domain.LateFeeRule
	query := `SELECT ` + lateFeeColumns + ` FROM late_fees ORDER BY days_late_start`
	if err := executor(ctx, r.db).SelectContext(ctx, &rules, query); err != nil {
		return nil, errors.Wrap(err, "list late fee rules")
	}

	return rules, nil
}

func (r *lateFeeRepository) Save(ctx context.Context, rule *domain.LateFeeRule) error {
	q := executor(ctx, r.db)
	query := `
		UPDATE late_fees
		SET days_late_start = ?, days_late_end = ?, fee_per_day = ?
		WHERE id = ?
	`

	result, err := q.ExecContext(ctx, q.Rebind(query), rule.DaysLateStart, rule.DaysLateEnd, rule.FeePerDay, rule.ID)
	if err != nil {
		return errors.Wrapf(err, "update late fee rule %d", rule.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *lateFeeRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, executor(ctx, r.db), "late_fees", id)
}
