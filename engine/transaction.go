package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/pwnedgod/carrier/adapter"
	"github.com/pwnedgod/carrier/storage"
)

const (
	slotKeyPrefix = "carrier###slot###"
	lockKeyPrefix = "lock###"
)

type (
	slotEnvelope struct {
		ID   int64  `msgpack:"id" json:"id"`
		Data []byte `msgpack:"data" json:"data"`
	}

	// Transaction queues slot writes and frees until Commit.
	Transaction struct {
		c   *Container
		ctx context.Context

		mu      sync.Mutex
		done    bool
		pending map[int64]*StatefulBuffer
		freed   map[int64]bool
	}
)

func (tx *Transaction) Container() *Container {
	return tx.c
}

func (tx *Transaction) Context() context.Context {
	return tx.ctx
}

// Persist queues buf for writing. A buffer without an address is given a
// fresh one.
func (tx *Transaction) Persist(buf *StatefulBuffer) (int64, error) {
	if buf.Transaction() != tx {
		return 0, ErrForeignBuffer
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return 0, ErrTransactionDone
	}

	address := buf.Address()
	if address == 0 {
		address = tx.c.nextAddress()
		buf.UseSlot(buf.ID(), address, buf.Length())
	}

	tx.pending[address] = buf
	delete(tx.freed, address)
	return address, nil
}

// Read returns the slot at address, preferring writes queued in this
// transaction over committed slots.
func (tx *Transaction) Read(address int64) (*StatefulBuffer, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return nil, ErrTransactionDone
	}
	if tx.freed[address] {
		return nil, ErrSlotNotFound
	}

	if buf, ok := tx.pending[address]; ok {
		data := buf.Bytes()
		read := NewStatefulBuffer(tx, len(data))
		read.Append(data)
		read.UseSlot(buf.ID(), address, len(data))
		return read, nil
	}

	raw, err := tx.c.adapter.Get(tx.ctx, slotKey(address))
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	var env slotEnvelope
	if err := tx.c.codec.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	read := NewStatefulBuffer(tx, len(env.Data))
	read.Append(env.Data)
	read.UseSlot(storage.ID(env.ID), address, len(env.Data))
	return read, nil
}

// Free queues the slot at address for deletion.
func (tx *Transaction) Free(address int64) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTransactionDone
	}
	if tx.freed[address] {
		return ErrSlotNotFound
	}

	if _, ok := tx.pending[address]; ok {
		delete(tx.pending, address)
		return nil
	}

	exists, err := tx.c.adapter.Exists(tx.ctx, slotKey(address))
	if err != nil {
		return err
	}
	if !exists {
		return ErrSlotNotFound
	}

	tx.freed[address] = true
	return nil
}

// Commit writes every queued slot under its slot lock, then deletes freed
// slots. The transaction is finished afterwards even if a write fails.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTransactionDone
	}
	tx.done = true

	for _, address := range sortedAddresses(tx.pending) {
		if err := tx.writeSlot(address, tx.pending[address]); err != nil {
			tx.c.logger.Error("slot commit failed", "address", address, "error", err)
			return err
		}
	}

	for address := range tx.freed {
		if err := tx.c.adapter.Delete(tx.ctx, slotKey(address)); err != nil {
			tx.c.logger.Error("slot free failed", "address", address, "error", err)
			return err
		}
	}

	tx.c.logger.Debug("transaction committed", "written", len(tx.pending), "freed", len(tx.freed))
	tx.pending = nil
	tx.freed = nil
	return nil
}

func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTransactionDone
	}
	tx.done = true
	tx.pending = nil
	tx.freed = nil
	return nil
}

func (tx *Transaction) writeSlot(address int64, buf *StatefulBuffer) error {
	key := slotKey(address)
	lockKey := lockKeyPrefix + key

	lock, err := tx.c.adapter.ObtainLock(tx.ctx, lockKey)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(tx.ctx); err != nil {
			tx.c.logger.Error("lock release failed", "key", lockKey, "error", err)
		}
	}()

	env := slotEnvelope{
		ID:   int64(buf.ID()),
		Data: buf.Bytes(),
	}
	data, err := tx.c.codec.Marshal(&env)
	if err != nil {
		return fmt.Errorf("encode slot %d: %w", address, err)
	}

	if err := tx.c.adapter.Set(tx.ctx, key, tx.c.slotTTL, data); err != nil {
		return err
	}

	tx.c.logger.Debug("slot written", "address", address, "length", len(env.Data))
	return nil
}

func slotKey(address int64) string {
	return slotKeyPrefix + strconv.FormatInt(address, 10)
}

func sortedAddresses(pending map[int64]*StatefulBuffer) []int64 {
	addresses := make([]int64, 0, len(pending))
	for address := range pending {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i] < addresses[j]
	})
	return addresses
}
