package reflector

import (
	"errors"
	"reflect"
	"sync"
	"time"
)

var ErrNilObject = errors.New("carrier: nil object has no class")

// Reflector resolves runtime types by their class name. Only types known to
// the reflector can be reconstructed from a serialized graph.
type Reflector struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func New() *Reflector {
	r := &Reflector{
		types: make(map[string]reflect.Type),
	}

	r.Register(
		false,
		int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0),
		"",
		[]byte(nil),
		[]string(nil),
		[]int(nil),
		[]float64(nil),
		[]interface{}(nil),
		map[string]string(nil),
		map[string]int(nil),
		map[string]interface{}(nil),
		time.Time{},
		time.Duration(0),
	)
	return r
}

// NameOf returns the class name of t. Named types are qualified with their
// package path.
func NameOf(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// Register makes the runtime type of each sample resolvable. Pointers to
// structs register the struct type as well.
func (r *Reflector) Register(samples ...interface{}) {
	for _, sample := range samples {
		if sample == nil {
			continue
		}

		t := reflect.TypeOf(sample)
		r.RegisterType(t)
		if t.Kind() == reflect.Ptr {
			r.RegisterType(t.Elem())
		}
	}
}

func (r *Reflector) RegisterType(t reflect.Type) {
	name := NameOf(t)

	r.mu.RLock()
	_, ok := r.types[name]
	r.mu.RUnlock()
	if ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
}

// RegisterName resolves name to t. It lets a graph written with one type be
// read back into another, e.g. after a type was renamed or moved.
func (r *Reflector) RegisterName(name string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
}

func (r *Reflector) ForName(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// ForObject returns the class of obj: the struct type for pointers to
// structs, the dynamic type otherwise.
func (r *Reflector) ForObject(obj interface{}) (reflect.Type, error) {
	if obj == nil {
		return nil, ErrNilObject
	}

	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, ErrNilObject
		}
		if v.Elem().Kind() == reflect.Struct {
			return v.Type().Elem(), nil
		}
	}
	return v.Type(), nil
}

func (r *Reflector) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.types)
}
