package sync

import (
	"context"
	"sync"

	"github.com/pwnedgod/carrier/adapter/util/mutex"
)

type syncMutexFactory struct {
}

func NewMutexFactory() mutex.MutexFactory {
	return &syncMutexFactory{}
}

func (f syncMutexFactory) Make(key string) mutex.Mutex {
	return &syncMutex{}
}

type syncMutex struct {
	mu sync.Mutex
}

func (m *syncMutex) Lock(ctx context.Context) error {
	m.mu.Lock()
	return nil
}

func (m *syncMutex) Unlock(ctx context.Context) error {
	m.mu.Unlock()
	return nil
}
