package mutex

import "context"

// Locker hands out exclusive locks on slot keys.
type Locker interface {
	Obtain(ctx context.Context, key string) (Lock, error)
}

type Lock interface {
	Release(ctx context.Context) error
}
