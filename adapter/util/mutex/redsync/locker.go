package redsync

import (
	"context"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis"
	"github.com/pwnedgod/carrier/adapter"
	"github.com/pwnedgod/carrier/adapter/util/mutex"
)

type redsyncLocker struct {
	rs      *redsync.Redsync
	options []redsync.Option
}

func NewLocker(pool redis.Pool, options ...redsync.Option) mutex.Locker {
	return &redsyncLocker{
		rs:      redsync.New(pool),
		options: options,
	}
}

func (lr redsyncLocker) Obtain(ctx context.Context, key string) (mutex.Lock, error) {
	m := lr.rs.NewMutex(key, lr.options...)

	if err := m.LockContext(ctx); err != nil {
		return nil, adapter.ErrFailedLock
	}

	return &redsyncLock{mutex: m}, nil
}

type redsyncLock struct {
	mutex *redsync.Mutex
}

func (l redsyncLock) Release(ctx context.Context) error {
	ok, err := l.mutex.UnlockContext(ctx)
	if err != nil || !ok {
		return adapter.ErrFailedUnlock
	}
	return nil
}
