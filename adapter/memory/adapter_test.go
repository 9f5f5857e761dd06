package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pwnedgod/carrier/adapter"
	"github.com/pwnedgod/carrier/adapter/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	a := memory.NewAdapter()

	data := []byte{1, 2, 3}
	require.NoError(t, a.Set(ctx, "k", 0, data))
	data[0] = 9

	got, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	ok, err := a.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.Delete(ctx, "k"))

	_, err = a.Get(ctx, "k")
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	ok, err = a.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiredSlot(t *testing.T) {
	ctx := context.Background()
	a := memory.NewAdapter()

	require.NoError(t, a.Set(ctx, "k", time.Millisecond, []byte{1}))
	time.Sleep(5 * time.Millisecond)

	_, err := a.Get(ctx, "k")
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestObtainLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	a := memory.NewAdapter()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			lock, err := a.ObtainLock(ctx, "lock###k")
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()

			assert.NoError(t, lock.Release(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}
