package redigo

import (
	"context"
	"errors"
	"time"

	rsredigo "github.com/go-redsync/redsync/v4/redis/redigo"
	"github.com/gomodule/redigo/redis"
	"github.com/pwnedgod/carrier/adapter"
	"github.com/pwnedgod/carrier/adapter/util/mutex"
	"github.com/pwnedgod/carrier/adapter/util/mutex/redsync"
)

type redigoAdapter struct {
	pool   *redis.Pool
	locker mutex.Locker
}

func NewAdapter(pool *redis.Pool) adapter.Adapter {
	return &redigoAdapter{
		pool:   pool,
		locker: redsync.NewLocker(rsredigo.NewPool(pool)),
	}
}

func (a redigoAdapter) do(ctx context.Context, cmd string, args ...any) (any, error) {
	conn, err := a.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return redis.DoContext(conn, ctx, cmd, args...)
}

func (a redigoAdapter) Exists(ctx context.Context, key string) (bool, error) {
	count, err := redis.Int64(a.do(ctx, CommandExists, key))
	if err != nil {
		return false, err
	}

	return count != 0, nil
}

func (a redigoAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := redis.Bytes(a.do(ctx, CommandGet, key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			err = adapter.ErrNotFound
		}

		return nil, err
	}

	return data, nil
}

func (a redigoAdapter) Set(ctx context.Context, key string, ttl time.Duration, value []byte) error {
	args := []any{
		key, value,
	}

	if ttl > 0 {
		args = append(args, formatExpirationArgs(ttl)...)
	}

	_, err := a.do(ctx, CommandSet, args...)
	return err
}

func (a redigoAdapter) Delete(ctx context.Context, key string) error {
	_, err := a.do(ctx, CommandDel, key)
	return err
}

func (a redigoAdapter) ObtainLock(ctx context.Context, key string) (adapter.Lock, error) {
	return a.locker.Obtain(ctx, key)
}
