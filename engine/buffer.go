package engine

import "github.com/pwnedgod/carrier/storage"

// StatefulBuffer is a byte buffer bound to a transaction and, once used as a
// slot, to the id and address of the graph it holds.
type StatefulBuffer struct {
	tx      *Transaction
	data    []byte
	offset  int
	id      storage.ID
	address int64
}

func NewStatefulBuffer(tx *Transaction, length int) *StatefulBuffer {
	if length < 0 {
		length = 0
	}
	return &StatefulBuffer{
		tx:   tx,
		data: make([]byte, length),
	}
}

// Append writes p at the current offset, growing the buffer if p does not
// fit.
func (b *StatefulBuffer) Append(p []byte) int {
	end := b.offset + len(p)
	if end > len(b.data) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}

	copy(b.data[b.offset:], p)
	b.offset = end
	return len(p)
}

// UseSlot binds the buffer to the graph root id and the slot at address.
// The buffer is resized to length.
func (b *StatefulBuffer) UseSlot(id storage.ID, address int64, length int) {
	b.id = id
	b.address = address

	if length < 0 {
		length = 0
	}
	if length != len(b.data) {
		resized := make([]byte, length)
		copy(resized, b.data)
		b.data = resized
	}
	if b.offset > length {
		b.offset = length
	}
}

func (b *StatefulBuffer) ID() storage.ID {
	return b.id
}

func (b *StatefulBuffer) Address() int64 {
	return b.address
}

func (b *StatefulBuffer) Length() int {
	return len(b.data)
}

func (b *StatefulBuffer) Bytes() []byte {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return data
}

func (b *StatefulBuffer) Transaction() *Transaction {
	return b.tx
}
