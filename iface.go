package carrier

import (
	"github.com/pwnedgod/carrier/engine"
	"github.com/pwnedgod/carrier/memfile"
	"github.com/pwnedgod/carrier/storage"
)

type (
	// SerializedGraph is the root id and byte snapshot produced by
	// marshalling an object graph. It is never mutated after creation.
	SerializedGraph struct {
		id    storage.ID
		bytes []byte
	}

	GraphCodec interface {
		// Encode marshals obj and everything reachable from it.
		Encode(obj interface{}) (SerializedGraph, error)

		// Decode rebuilds a fully activated graph. A graph without a root
		// decodes to nil.
		Decode(g SerializedGraph) (interface{}, error)
	}

	Serializer interface {
		GraphCodec

		// Set the capacity reserved by the buffer before the first write.
		SetInitialSize(size int) Serializer

		// Set the capacity added each time the buffer must grow.
		SetIncrementSize(size int) Serializer

		// Marshal obj against the engine of tx into a slot-backed buffer.
		EncodeTx(tx *engine.Transaction, obj interface{}) (*engine.StatefulBuffer, error)

		DecodeBuffer(buf *engine.StatefulBuffer) (interface{}, error)

		DecodeBytes(data []byte, id storage.ID) (interface{}, error)
	}

	Config struct {
		InitialSize   int
		IncrementSize int
	}
)

func DefaultConfig() Config {
	return Config{
		InitialSize:   memfile.DefaultInitialSize,
		IncrementSize: memfile.DefaultIncrementSize,
	}
}

// NewSerializedGraph wraps a copy of data as a graph rooted at id.
func NewSerializedGraph(id storage.ID, data []byte) SerializedGraph {
	bytes := make([]byte, len(data))
	copy(bytes, data)
	return SerializedGraph{id: id, bytes: bytes}
}

func (g SerializedGraph) ID() storage.ID {
	return g.id
}

// Bytes returns a copy of the snapshot.
func (g SerializedGraph) Bytes() []byte {
	bytes := make([]byte, len(g.bytes))
	copy(bytes, g.bytes)
	return bytes
}

func (g SerializedGraph) Len() int {
	return len(g.bytes)
}

func (g SerializedGraph) IsNull() bool {
	return g.id.IsNull()
}

func (c Config) newFile() *memfile.MemoryFile {
	file := memfile.New()
	file.SetInitialSize(c.InitialSize)
	file.SetIncrementSize(c.IncrementSize)
	return file
}
