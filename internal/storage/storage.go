// Package storage opens the store selected by STORE_BACKEND and exposes it
// through the repository interfaces.
package storage

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/movie-rental/internal/config"
	"github.com/segyhp/movie-rental/internal/repository"
	"github.com/segyhp/movie-rental/internal/repository/kv"
)

// Pinger checks one dependency for readiness.
type Pinger func(ctx context.Context) error

// Storage bundles the repositories of one backend.
type Storage struct {
	Movies   repository.MovieRepository
	Users    repository.UserRepository
	Rentals  repository.RentalRepository
	LateFees repository.LateFeeRepository
	Tx       repository.Transactor
	Cache    repository.StatsCache

	// Checks maps a dependency name to its readiness check.
	Checks map[string]Pinger

	closers []io.Closer
}

// Open connects to the configured backend and applies SEED_FILE when set.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	s := &Storage{
		Cache:  repository.NoopStatsCache{},
		Checks: make(map[string]Pinger),
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres, config.BackendPgx, config.BackendMySQL:
		db, err := openSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		s.useSQL(db)
		s.Checks["database"] = db.PingContext

		// The dashboard cache is optional next to a SQL store.
		if cfg.Redis.Addr != "" {
			client := newRedisClient(cfg)
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unavailable, dashboard cache disabled", "addr", cfg.Redis.Addr, "err", err)
				_ = client.Close()
			} else {
				s.closers = append(s.closers, client)
				s.Cache = repository.NewRedisStatsCache(client)
				s.Checks["redis"] = pingRedis(client)
			}
		}

	case config.BackendRedis:
		client := newRedisClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "connect redis")
		}
		s.closers = append(s.closers, client)
		s.useKV(kv.NewStore(kv.NewRedisBackend(client, cfg.Redis.DataKey)))
		s.Cache = repository.NewRedisStatsCache(client)
		s.Checks["redis"] = pingRedis(client)

	default:
		s.useKV(kv.NewStore(kv.NewMemoryBackend(nil)))
	}

	log.Info("store opened", "backend", cfg.Store.Backend)

	if cfg.Store.SeedFile != "" {
		ds, err := ReadSeedFile(cfg.Store.SeedFile)
		if err != nil {
			s.Close()
			return nil, err
		}
		n, err := s.Seed(ctx, ds)
		if err != nil {
			s.Close()
			return nil, err
		}
		log.Info("seed applied", "file", cfg.Store.SeedFile, "records", n)
	}

	return s, nil
}

// NewMemory returns a Storage over an in-process dataset.
func NewMemory(initial *kv.Dataset) *Storage {
	s := &Storage{
		Cache:  repository.NoopStatsCache{},
		Checks: make(map[string]Pinger),
	}
	s.useKV(kv.NewStore(kv.NewMemoryBackend(initial)))
	return s
}

// Close releases every connection the storage opened.
func (s *Storage) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

func (s *Storage) useSQL(db *sqlx.DB) {
	s.Movies = repository.NewMovieRepository(db)
	s.Users = repository.NewUserRepository(db)
	s.Rentals = repository.NewRentalRepository(db)
	s.LateFees = repository.NewLateFeeRepository(db)
	s.Tx = repository.NewTransactor(db)
}

func (s *Storage) useKV(store *kv.Store) {
	s.Movies = store.Movies()
	s.Users = store.Users()
	s.Rentals = store.Rentals()
	s.LateFees = store.LateFees()
	s.Tx = store
}

func openSQL(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	driver, dsn := cfg.Store.Backend, cfg.Database.URL
	if driver == config.BackendMySQL {
		normalized, err := mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = normalized
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", driver)
	}

	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxOpenConns)
	}

	return db, nil
}

// mysqlDSN forces the options the repositories rely on: DATETIME columns scan
// into time.Time and UPDATE reports matched rather than changed rows.
func mysqlDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	parsed.ParseTime = true
	parsed.ClientFoundRows = true
	return parsed.FormatDSN(), nil
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func pingRedis(client *redis.Client) Pinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// ReadSeedFile decodes a dataset document from path.
func ReadSeedFile(path string) (*kv.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	ds, err := kv.Decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decode seed file %s", path)
	}
	return ds, nil
}
