package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type txKey struct{}

// dbtx is the part of sqlx.DB and sqlx.Tx the repositories need.
type dbtx interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

// executor returns the transaction bound to ctx, or db when there is none.
func executor(ctx context.Context, db *sqlx.DB) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

type sqlTransactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) Transactor {
	return &sqlTransactor{db: db}
}

func (t *sqlTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested units join the outer transaction.
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit tx")
}

// nextID returns MAX(id)+1 of table, or 1 for an empty table.
func nextID(ctx context.Context, q dbtx, table string) (int64, error) {
	var id int64
	if err := q.GetContext(ctx, &id, "SELECT COALESCE(MAX(id), 0) + 1 FROM "+table); err != nil {
		return 0, errors.Wrapf(err, "next %s id", table)
	}
	return id, nil
}

// deleteByID removes one row and reports ErrNotFound when nothing matched.
func deleteByID(ctx context.Context, q dbtx, table string, id int64) error {
	result, err := q.ExecContext(ctx, q.Rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return errors.Wrapf(err, "delete from %s", table)
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

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrapf(err, format, args...)
}
