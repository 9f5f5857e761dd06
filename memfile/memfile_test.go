package memfile_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/pwnedgod/carrier/memfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySnapshotKeepsInitialReserve(t *testing.T) {
	f := memfile.New()

	data := f.Bytes()
	assert.Len(t, data, memfile.DefaultInitialSize)
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, 0, f.Growths())
}

func TestWriteWithinReserveDoesNotGrow(t *testing.T) {
	f := memfile.New()

	off, err := f.Append([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)
	assert.Equal(t, memfile.DefaultInitialSize, f.Cap())
	assert.Equal(t, 0, f.Growths())

	data := f.Bytes()
	assert.Len(t, data, memfile.DefaultInitialSize)
	assert.Equal(t, []byte("hello"), data[:5])
}

func TestGrowsByIncrement(t *testing.T) {
	f := memfile.New()
	f.SetInitialSize(10)
	f.SetIncrementSize(8)

	chunk := bytes.Repeat([]byte{0xab}, 6)
	for i := 0; i < 5; i++ {
		_, err := f.Append(chunk)
		require.NoError(t, err)
	}

	assert.Equal(t, 30, f.Len())
	assert.Equal(t, 34, f.Cap())
	assert.Equal(t, 3, f.Growths())

	data := f.Bytes()
	assert.Len(t, data, 30)
	assert.Equal(t, bytes.Repeat([]byte{0xab}, 30), data)
}

func TestLargeWriteGrowsInWholeIncrements(t *testing.T) {
	f := memfile.New()
	f.SetInitialSize(4)
	f.SetIncrementSize(5)

	_, err := f.WriteAt(make([]byte, 17), 0)
	require.NoError(t, err)

	assert.Equal(t, 19, f.Cap())
	assert.Equal(t, 1, f.Growths())
	assert.Len(t, f.Bytes(), 17)
}

func TestWriteAtPatchesWithoutMovingHighWater(t *testing.T) {
	f := memfile.New()

	_, err := f.Append([]byte("abcdef"))
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("XY"), 1)
	require.NoError(t, err)

	assert.Equal(t, 6, f.Len())
	assert.Equal(t, []byte("aXYdef"), f.Bytes()[:6])
}

func TestReadAt(t *testing.T) {
	f := memfile.FromBytes([]byte("0123456789"))

	buf := make([]byte, 4)
	n, err := f.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("2345"), buf)

	n, err = f.ReadAt(buf, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)

	_, err = f.ReadAt(buf, 10)
	assert.ErrorIs(t, err, io.EOF)

	_, err = f.ReadAt(buf, -1)
	assert.ErrorIs(t, err, memfile.ErrNegativeOffset)
}

func TestFromBytesCopiesInput(t *testing.T) {
	src := []byte("immutable")
	f := memfile.FromBytes(src)

	_, err := f.WriteAt([]byte("X"), 0)
	require.NoError(t, err)

	assert.Equal(t, []byte("immutable"), src)
	assert.Equal(t, len(src), f.Len())
}

func TestSnapshotIsDetached(t *testing.T) {
	f := memfile.New()
	_, err := f.Append([]byte("abc"))
	require.NoError(t, err)

	snap := f.Bytes()
	snap[0] = 'z'

	assert.Equal(t, byte('a'), f.Bytes()[0])
}
