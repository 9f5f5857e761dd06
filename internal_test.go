package carrier

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/pwnedgod/carrier/adapter/memory"
	"github.com/pwnedgod/carrier/codec/msgpack"
	"github.com/pwnedgod/carrier/engine"
	"github.com/pwnedgod/carrier/logger/std"
	"github.com/pwnedgod/carrier/memfile"
	"github.com/pwnedgod/carrier/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	trackedTransport struct {
		transport
		closes   int
		storeErr error
		closeErr error
		panicMsg string
	}

	link struct {
		Body string
		Next *link
	}

	fnHolder struct {
		Fn func()
	}
)

func (t *trackedTransport) Store(obj interface{}) (storage.ID, error) {
	if t.panicMsg != "" {
		panic(t.panicMsg)
	}
	if t.storeErr != nil {
		return storage.NoID, t.storeErr
	}
	return t.transport.Store(obj)
}

func (t *trackedTransport) Close() error {
	t.closes++
	if err := t.transport.Close(); err != nil {
		return err
	}
	return t.closeErr
}

func newTestEngine(t *testing.T) *engine.Container {
	e, err := engine.New(memory.NewAdapter(), msgpack.NewCodec(), std.NewLoggerWithWriters(io.Discard, io.Discard, false))
	require.NoError(t, err)
	return e
}

// trackTransports replaces openTransport for the duration of the test and
// records every store it opens along with its file.
func trackTransports(t *testing.T, configure func(*trackedTransport)) (*[]*trackedTransport, *[]*memfile.MemoryFile) {
	var (
		opened []*trackedTransport
		files  []*memfile.MemoryFile
	)

	original := openTransport
	openTransport = func(svc storage.Service, file *memfile.MemoryFile) (transport, error) {
		inner, err := original(svc, file)
		if err != nil {
			return nil, err
		}

		tracked := &trackedTransport{transport: inner}
		if configure != nil {
			configure(tracked)
		}
		opened = append(opened, tracked)
		files = append(files, file)
		return tracked, nil
	}
	t.Cleanup(func() { openTransport = original })

	return &opened, &files
}

func TestTransportClosedOnSuccess(t *testing.T) {
	opened, _ := trackTransports(t, nil)
	e := newTestEngine(t)

	g, err := Marshal(e, &link{Body: "a"})
	require.NoError(t, err)

	_, err = Unmarshal(e, g)
	require.NoError(t, err)

	require.Len(t, *opened, 2)
	for _, tr := range *opened {
		assert.Equal(t, 1, tr.closes)
	}
}

func TestTransportClosedOnStoreFailure(t *testing.T) {
	storeErr := errors.New("store failed")
	opened, _ := trackTransports(t, func(tr *trackedTransport) {
		tr.storeErr = storeErr
	})

	_, err := Marshal(newTestEngine(t), &link{Body: "a"})
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, CategoryStore, Category(err))

	require.Len(t, *opened, 1)
	assert.Equal(t, 1, (*opened)[0].closes)
}

func TestTransportClosedOnMetadataFailure(t *testing.T) {
	opened, _ := trackTransports(t, nil)

	_, err := Marshal(newTestEngine(t), &fnHolder{Fn: func() {}})
	assert.Equal(t, CategoryMetadata, Category(err))

	require.Len(t, *opened, 1)
	assert.Equal(t, 1, (*opened)[0].closes)
}

func TestTransportClosedOnDecodeFailure(t *testing.T) {
	e := newTestEngine(t)
	g, err := Marshal(e, &link{Body: "a"})
	require.NoError(t, err)

	opened, _ := trackTransports(t, nil)

	_, err = UnmarshalBytes(e, g.bytes, g.id+1)
	assert.Equal(t, CategoryDecode, Category(err))

	require.Len(t, *opened, 1)
	assert.Equal(t, 1, (*opened)[0].closes)
}

func TestTransportClosedOnPanic(t *testing.T) {
	opened, _ := trackTransports(t, func(tr *trackedTransport) {
		tr.panicMsg = "boom"
	})

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = Marshal(newTestEngine(t), &link{Body: "a"})
	})

	require.Len(t, *opened, 1)
	assert.Equal(t, 1, (*opened)[0].closes)
}

func TestDisposeFailure(t *testing.T) {
	closeErr := errors.New("close failed")
	trackTransports(t, func(tr *trackedTransport) {
		tr.closeErr = closeErr
	})

	_, err := Marshal(newTestEngine(t), &link{Body: "a"})
	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, CategoryDispose, Category(err))
}

func TestDisposeFailureDoesNotMaskEarlierError(t *testing.T) {
	storeErr := errors.New("store failed")
	trackTransports(t, func(tr *trackedTransport) {
		tr.storeErr = storeErr
		tr.closeErr = errors.New("close failed")
	})

	_, err := Marshal(newTestEngine(t), &link{Body: "a"})
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, CategoryStore, Category(err))
}

func TestNullRootOpensNoStore(t *testing.T) {
	opened, _ := trackTransports(t, nil)
	e := newTestEngine(t)

	for _, id := range []storage.ID{0, -7} {
		obj, err := UnmarshalBytes(e, nil, id)
		assert.NoError(t, err)
		assert.Nil(t, obj)
	}

	obj, err := Unmarshal(e, SerializedGraph{})
	assert.NoError(t, err)
	assert.Nil(t, obj)

	assert.Empty(t, *opened)
}

func TestBufferGrowsTransparently(t *testing.T) {
	_, files := trackTransports(t, nil)
	e := newTestEngine(t)

	var head *link
	for i := 0; i < 100; i++ {
		head = &link{Body: fmt.Sprintf("%03d-%s", i, strings.Repeat("y", 24)), Next: head}
	}

	g, err := Marshal(e, head)
	require.NoError(t, err)

	require.Len(t, *files, 1)
	assert.GreaterOrEqual(t, (*files)[0].Growths(), 2)
	assert.Equal(t, (*files)[0].Len(), g.Len())

	obj, err := Unmarshal(e, g)
	require.NoError(t, err)
	assert.Equal(t, head, obj)
}

func TestConfigSizesReachTheBuffer(t *testing.T) {
	_, files := trackTransports(t, nil)
	e := newTestEngine(t)

	ser := NewWithConfig(e, Config{InitialSize: 64, IncrementSize: 32})
	_, err := ser.Encode(&link{Body: "a"})
	require.NoError(t, err)

	require.Len(t, *files, 1)
	assert.Equal(t, 64, (*files)[0].InitialSize())
	assert.Equal(t, 32, (*files)[0].IncrementSize())
}
