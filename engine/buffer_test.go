package engine_test

import (
	"testing"

	"github.com/pwnedgod/carrier/engine"
	"github.com/stretchr/testify/assert"
)

func TestStatefulBufferAppend(t *testing.T) {
	buf := engine.NewStatefulBuffer(nil, 4)

	assert.Equal(t, 2, buf.Append([]byte{1, 2}))
	assert.Equal(t, []byte{1, 2, 0, 0}, buf.Bytes())

	buf.Append([]byte{3, 4, 5})
	assert.Equal(t, 5, buf.Length())
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, buf.Bytes())
}

func TestStatefulBufferUseSlot(t *testing.T) {
	buf := engine.NewStatefulBuffer(nil, 3)
	buf.Append([]byte{1, 2, 3})

	buf.UseSlot(9, 100, 2)
	assert.EqualValues(t, 9, buf.ID())
	assert.EqualValues(t, 100, buf.Address())
	assert.Equal(t, []byte{1, 2}, buf.Bytes())

	buf.Append([]byte{7})
	assert.Equal(t, []byte{1, 2, 7}, buf.Bytes())
}

func TestStatefulBufferBytesIsCopy(t *testing.T) {
	buf := engine.NewStatefulBuffer(nil, 1)
	buf.Append([]byte{1})

	data := buf.Bytes()
	data[0] = 9
	assert.Equal(t, []byte{1}, buf.Bytes())
}
