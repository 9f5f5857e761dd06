package storage

import (
	"encoding"
	"fmt"
	"reflect"

	"github.com/pwnedgod/carrier/catalog"
)

// Store persists obj and everything reachable from it. Pointers to structs
// keep their identity; every other value is embedded in its holder.
// A nil obj stores nothing and returns NoID.
func (c *Container) Store(obj interface{}) (ID, error) {
	if err := c.writable(); err != nil {
		return NoID, err
	}
	if obj == nil {
		return NoID, nil
	}

	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return NoID, nil
	}

	var root ID
	if isObject(v.Type()) {
		id, err := c.reference(v)
		if err != nil {
			return NoID, err
		}
		root = id
	} else {
		_, local, err := c.classFor(v.Type())
		if err != nil {
			return NoID, err
		}
		inner, err := c.encode(v)
		if err != nil {
			return NoID, err
		}

		root = c.allocID()
		c.objects[root] = v
		if err := c.writeSlot(root, cell{K: kindBoxed, C: local, L: []cell{inner}}); err != nil {
			return NoID, err
		}
	}

	if err := c.flush(); err != nil {
		return NoID, err
	}
	return root, nil
}

// flush writes every object referenced so far but not yet written.
func (c *Container) flush() error {
	for len(c.queue) > 0 {
		id := c.queue[0]
		c.queue = c.queue[1:]

		record, err := c.encode(c.objects[id].Elem())
		if err != nil {
			return err
		}
		if err := c.writeSlot(id, record); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) allocID() ID {
	c.nextID++
	return c.nextID
}

// reference returns the id of an object pointer, queueing it for writing on
// first sight.
func (c *Container) reference(v reflect.Value) (ID, error) {
	key := keyOf(v)
	if id, ok := c.ids[key]; ok {
		return id, nil
	}

	if _, _, err := c.classFor(v.Type().Elem()); err != nil {
		return NoID, err
	}

	id := c.allocID()
	c.ids[key] = id
	c.objects[id] = v
	c.queue = append(c.queue, id)
	return id, nil
}

func (c *Container) writeSlot(id ID, record cell) error {
	data, err := c.svc.Codec().Marshal(&record)
	if err != nil {
		return err
	}

	addr, err := c.file.Append(data)
	if err != nil {
		return err
	}
	if err := checkAddressable(addr, len(data)); err != nil {
		return err
	}

	c.slotRecords = append(c.slotRecords, slotRecord{
		ID:      id,
		Address: uint32(addr),
		Length:  uint32(len(data)),
	})
	return nil
}

func (c *Container) encode(v reflect.Value) (cell, error) {
	t := v.Type()
	if catalog.IsBinary(t) {
		data, err := v.Interface().(encoding.BinaryMarshaler).MarshalBinary()
		if err != nil {
			return cell{}, err
		}
		return cell{K: kindBinary, X: data}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return cell{K: kindBool, B: v.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cell{K: kindInt, I: v.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cell{K: kindUint, U: v.Uint()}, nil
	case reflect.Float32, reflect.Float64:
		return cell{K: kindFloat, F: v.Float()}, nil
	case reflect.String:
		return cell{K: kindString, S: v.String()}, nil

	case reflect.Interface:
		if v.IsNil() {
			return cell{K: kindNil}, nil
		}
		return c.encodeDynamic(v.Elem())

	case reflect.Ptr:
		if v.IsNil() {
			return cell{K: kindNil}, nil
		}
		if isObject(t) {
			id, err := c.reference(v)
			if err != nil {
				return cell{}, err
			}
			return cell{K: kindRef, R: id}, nil
		}
		leave, err := c.enter(v, 0)
		if err != nil {
			return cell{}, err
		}
		defer leave()

		inner, err := c.encode(v.Elem())
		if err != nil {
			return cell{}, err
		}
		return cell{K: kindPointer, L: []cell{inner}}, nil

	case reflect.Slice:
		if v.IsNil() {
			return cell{K: kindNil}, nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return cell{K: kindBytes, X: v.Bytes()}, nil
		}
		leave, err := c.enter(v, v.Len())
		if err != nil {
			return cell{}, err
		}
		defer leave()

		return c.encodeList(v)

	case reflect.Array:
		return c.encodeList(v)

	case reflect.Map:
		if v.IsNil() {
			return cell{K: kindNil}, nil
		}
		leave, err := c.enter(v, 0)
		if err != nil {
			return cell{}, err
		}
		defer leave()

		out := cell{K: kindMap, L: make([]cell, 0, v.Len()*2)}
		iter := v.MapRange()
		for iter.Next() {
			k, err := c.encode(iter.Key())
			if err != nil {
				return cell{}, err
			}
			e, err := c.encode(iter.Value())
			if err != nil {
				return cell{}, err
			}
			out.L = append(out.L, k, e)
		}
		return out, nil

	case reflect.Struct:
		meta, local, err := c.classFor(t)
		if err != nil {
			return cell{}, err
		}
		out := cell{K: kindStruct, C: local, L: make([]cell, len(meta.Fields))}
		for i, f := range meta.Fields {
			fc, err := c.encode(v.Field(f.Index))
			if err != nil {
				return cell{}, fmt.Errorf("field %s.%s: %w", meta.Name, f.Name, err)
			}
			out.L[i] = fc
		}
		return out, nil
	}

	return cell{}, fmt.Errorf("%w: %s", catalog.ErrUnsupportedType, t)
}

func (c *Container) encodeList(v reflect.Value) (cell, error) {
	out := cell{K: kindList, L: make([]cell, v.Len())}
	for i := 0; i < v.Len(); i++ {
		e, err := c.encode(v.Index(i))
		if err != nil {
			return cell{}, err
		}
		out.L[i] = e
	}
	return out, nil
}

// encodeDynamic encodes the value held by an interface. Objects are
// referenced, everything else is boxed with its class so the concrete type
// can be rebuilt.
func (c *Container) encodeDynamic(v reflect.Value) (cell, error) {
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return cell{K: kindNil}, nil
	}
	if isObject(v.Type()) {
		id, err := c.reference(v)
		if err != nil {
			return cell{}, err
		}
		return cell{K: kindRef, R: id}, nil
	}

	_, local, err := c.classFor(v.Type())
	if err != nil {
		return cell{}, err
	}
	inner, err := c.encode(v)
	if err != nil {
		return cell{}, err
	}
	return cell{K: kindBoxed, C: local, L: []cell{inner}}, nil
}

// enter marks v as being embedded until leave is called. Meeting v again
// before that is a cycle no object pointer breaks, which cannot be embedded.
func (c *Container) enter(v reflect.Value, n int) (func(), error) {
	key := valueKey{ptr: v.Pointer(), typ: v.Type(), len: n}
	if _, ok := c.embedding[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrValueCycle, v.Type())
	}

	c.embedding[key] = struct{}{}
	return func() { delete(c.embedding, key) }, nil
}

// isObject reports whether values of t are pointers to first-class objects.
func isObject(t reflect.Type) bool {
	return t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct && !catalog.IsBinary(t.Elem())
}
