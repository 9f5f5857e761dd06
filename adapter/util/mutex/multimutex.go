package mutex

import (
	"context"
	"sync"
)

// MultiMutex keeps one mutex per key alive while it has holders or waiters.
type MultiMutex struct {
	mutexFactory MutexFactory
	mutexes      map[string]Mutex
	mutexCounts  map[string]int
	syncMutex    sync.Mutex
}

func NewMultiMutex(mutexFactory MutexFactory) *MultiMutex {
	return &MultiMutex{
		mutexFactory: mutexFactory,
		mutexes:      make(map[string]Mutex),
		mutexCounts:  make(map[string]int),
	}
}

func (m *MultiMutex) Lock(ctx context.Context, key string) error {
	mutex := m.acquire(key)
	if err := mutex.Lock(ctx); err != nil {
		m.release(key)
		return err
	}
	return nil
}

func (m *MultiMutex) Unlock(ctx context.Context, key string) error {
	mutex := m.release(key)
	return mutex.Unlock(ctx)
}

func (m *MultiMutex) acquire(key string) Mutex {
	m.syncMutex.Lock()
	defer m.syncMutex.Unlock()

	mutex, ok := m.mutexes[key]
	if !ok {
		mutex = m.mutexFactory.Make(key)
		m.mutexes[key] = mutex
	}
	m.mutexCounts[key]++

	return mutex
}

func (m *MultiMutex) release(key string) Mutex {
	m.syncMutex.Lock()
	defer m.syncMutex.Unlock()

	mutex, ok := m.mutexes[key]
	if !ok {
		panic("attempting to release unset mutex: " + key)
	}

	m.mutexCounts[key]--
	if m.mutexCounts[key] == 0 {
		delete(m.mutexes, key)
		delete(m.mutexCounts, key)
	}

	return mutex
}
