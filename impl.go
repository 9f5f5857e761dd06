package carrier

import (
	"fmt"
	"reflect"

	"github.com/pwnedgod/carrier/catalog"
	"github.com/pwnedgod/carrier/engine"
	"github.com/pwnedgod/carrier/memfile"
	"github.com/pwnedgod/carrier/storage"
)

type (
	// transport is the part of a graph store a marshal or unmarshal call
	// drives.
	transport interface {
		ProduceClassMetadata(obj interface{}) (*catalog.ClassMetadata, error)
		Store(obj interface{}) (storage.ID, error)
		GetByID(id storage.ID) (interface{}, error)
		ActivateByID(id storage.ID, depth storage.ActivationDepth) error
		Close() error
	}

	defaultSerializer struct {
		svc storage.Service
		cfg Config
	}
)

var openTransport = func(svc storage.Service, file *memfile.MemoryFile) (transport, error) {
	return storage.Open(svc, file)
}

func New(svc storage.Service) Serializer {
	return NewWithConfig(svc, DefaultConfig())
}

func NewWithConfig(svc storage.Service, cfg Config) Serializer {
	return &defaultSerializer{
		svc: svc,
		cfg: cfg,
	}
}

// Marshal converts obj and everything reachable from it into a serialized
// graph. A nil obj yields a graph without a root.
func Marshal(svc storage.Service, obj interface{}) (SerializedGraph, error) {
	return marshal(svc, DefaultConfig(), obj)
}

// MarshalTx marshals obj against the engine of tx and wraps the result in a
// buffer bound to tx.
func MarshalTx(tx *engine.Transaction, obj interface{}) (*engine.StatefulBuffer, error) {
	return marshalTx(DefaultConfig(), tx, obj)
}

// Unmarshal rebuilds the graph held by g with every object fully activated.
func Unmarshal(svc storage.Service, g SerializedGraph) (interface{}, error) {
	return unmarshal(svc, DefaultConfig(), g.bytes, g.id)
}

func UnmarshalBuffer(svc storage.Service, buf *engine.StatefulBuffer) (interface{}, error) {
	if buf == nil {
		return nil, nil
	}
	return unmarshal(svc, DefaultConfig(), buf.Bytes(), buf.ID())
}

func UnmarshalBytes(svc storage.Service, data []byte, id storage.ID) (interface{}, error) {
	return unmarshal(svc, DefaultConfig(), data, id)
}

// UnmarshalAs unmarshals g into a T. The bool is false when g has no root.
func UnmarshalAs[T any](svc storage.Service, g SerializedGraph) (T, bool, error) {
	var zero T

	obj, err := Unmarshal(svc, g)
	if err != nil {
		return zero, false, err
	}
	if obj == nil {
		return zero, false, nil
	}

	value, ok := obj.(T)
	if !ok {
		return zero, false, fmt.Errorf("%w: %T", ErrRootType, obj)
	}
	return value, true, nil
}

func (s *defaultSerializer) SetInitialSize(size int) Serializer {
	if size < 0 {
		size = 0
	}
	s.cfg.InitialSize = size
	return s
}

func (s *defaultSerializer) SetIncrementSize(size int) Serializer {
	if size < 1 {
		size = 1
	}
	s.cfg.IncrementSize = size
	return s
}

func (s defaultSerializer) Encode(obj interface{}) (SerializedGraph, error) {
	return marshal(s.svc, s.cfg, obj)
}

func (s defaultSerializer) Decode(g SerializedGraph) (interface{}, error) {
	return unmarshal(s.svc, s.cfg, g.bytes, g.id)
}

func (s defaultSerializer) EncodeTx(tx *engine.Transaction, obj interface{}) (*engine.StatefulBuffer, error) {
	return marshalTx(s.cfg, tx, obj)
}

func (s defaultSerializer) DecodeBuffer(buf *engine.StatefulBuffer) (interface{}, error) {
	if buf == nil {
		return nil, nil
	}
	return unmarshal(s.svc, s.cfg, buf.Bytes(), buf.ID())
}

func (s defaultSerializer) DecodeBytes(data []byte, id storage.ID) (interface{}, error) {
	return unmarshal(s.svc, s.cfg, data, id)
}

func marshal(svc storage.Service, cfg Config, obj interface{}) (SerializedGraph, error) {
	file := cfg.newFile()

	var id storage.ID
	err := withTransport(svc, file, newMarshalError, func(t transport) error {
		if !isNil(obj) {
			if _, err := t.ProduceClassMetadata(obj); err != nil {
				return newMarshalError(CategoryMetadata, "error while producing class metadata", err)
			}
		}

		stored, err := t.Store(obj)
		if err != nil {
			return newMarshalError(CategoryStore, "error while storing graph", err)
		}

		id = stored
		return nil
	})
	if err != nil {
		svc.Logger().Error(err)
		return SerializedGraph{}, err
	}

	// The store is closed at this point, so the snapshot includes the index.
	g := SerializedGraph{id: id, bytes: file.Bytes()}
	svc.Logger().Debug("graph marshalled", "id", int64(g.id), "length", len(g.bytes), "growths", file.Growths())
	return g, nil
}

func marshalTx(cfg Config, tx *engine.Transaction, obj interface{}) (*engine.StatefulBuffer, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}

	g, err := marshal(tx.Container(), cfg, obj)
	if err != nil {
		return nil, err
	}

	buf := engine.NewStatefulBuffer(tx, g.Len())
	buf.Append(g.bytes)
	buf.UseSlot(g.id, 0, g.Len())
	return buf, nil
}

func unmarshal(svc storage.Service, cfg Config, data []byte, id storage.ID) (interface{}, error) {
	if id.IsNull() {
		return nil, nil
	}

	file := memfile.FromBytes(data)
	file.SetIncrementSize(cfg.IncrementSize)

	var root interface{}
	err := withTransport(svc, file, newUnmarshalError, func(t transport) error {
		obj, err := t.GetByID(id)
		if err != nil {
			return newUnmarshalError(CategoryDecode, "error while fetching root", err)
		}

		if err := t.ActivateByID(id, storage.FullActivationDepth{}); err != nil {
			return newUnmarshalError(CategoryActivation, "error while activating graph", err)
		}

		root = obj
		return nil
	})
	if err != nil {
		svc.Logger().Error(err)
		return nil, err
	}

	svc.Logger().Debug("graph unmarshalled", "id", int64(id), "length", len(data))
	return root, nil
}

// withTransport opens a graph store on file, runs fn, and closes the store
// on every path. A close failure is only reported when fn succeeded.
func withTransport(svc storage.Service, file *memfile.MemoryFile, wrap errorFactory, fn func(t transport) error) (err error) {
	t, err := openTransport(svc, file)
	if err != nil {
		category := CategoryStore
		if file.Len() > 0 {
			category = CategoryDecode
		}
		return wrap(category, "error while opening graph store", err)
	}

	defer func() {
		if closeErr := t.Close(); closeErr != nil && err == nil {
			err = wrap(CategoryDispose, "error while disposing graph store", closeErr)
		}
	}()

	return fn(t)
}

func isNil(obj interface{}) bool {
	if obj == nil {
		return true
	}

	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
