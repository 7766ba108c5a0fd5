package kv

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/movie-rental/internal/repository"
)

// Backend loads and persists the dataset document.
type Backend interface {
	// View runs fn against the current dataset. fn must not modify it.
	View(ctx context.Context, fn func(ds *Dataset) error) error

	// Update runs fn against a private copy and persists the copy only if fn succeeds.
	Update(ctx context.Context, fn func(ds *Dataset) error) error
}

// MemoryBackend keeps the dataset in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data *Dataset
}

func NewMemoryBackend(initial *Dataset) *MemoryBackend {
	if initial == nil {
		initial = &Dataset{}
	}
	return &MemoryBackend{data: initial.Clone()}
}

func (b *MemoryBackend) View(_ context.Context, fn func(ds *Dataset) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.data)
}

func (b *MemoryBackend) Update(_ context.Context, fn func(ds *Dataset) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.data.Clone()
	if err := fn(next); err != nil {
		return err
	}
	b.data = next
	return nil
}

const defaultMaxRetries = 5

// RedisBackend keeps the dataset as one JSON value under key. Updates use
// WATCH/MULTI so a concurrent writer forces a retry instead of a lost update.
type RedisBackend struct {
	client     *redis.Client
	key        string
	maxRetries int
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key, maxRetries: defaultMaxRetries}
}

func (b *RedisBackend) View(ctx context.Context, fn func(ds *Dataset) error) error {
	ds, err := b.load(ctx, b.client)
	if err != nil {
		return err
	}
	return fn(ds)
}

func (b *RedisBackend) Update(ctx context.Context, fn func(ds *Dataset) error) error {
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		err := b.client.Watch(ctx, func(tx *redis.Tx) error {
			ds, err := b.load(ctx, tx)
			if err != nil {
				return err
			}
			if err := fn(ds); err != nil {
				return err
			}

			raw, err := Encode(ds)
			if err != nil {
				return errors.Wrap(err, "encode dataset")
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, b.key, raw, 0)
				return nil
			})
			return err
		}, b.key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("dataset %s: %w after %d attempts", b.key, repository.ErrConflict, b.maxRetries)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (b *RedisBackend) load(ctx context.Context, c getter) (*Dataset, error) {
	raw, err := c.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Dataset{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", b.key)
	}
	return Decode(raw)
}
