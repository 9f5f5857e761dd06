package adapter

import "errors"

var (
	ErrNotFound     = errors.New("carrier: slot not found")
	ErrFailedLock   = errors.New("carrier: failed lock")
	ErrFailedUnlock = errors.New("carrier: failed unlock")
)
