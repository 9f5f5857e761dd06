package catalog

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/pwnedgod/carrier/reflector"
)

const tagName = "carrier"

var (
	ErrUnsupportedType = errors.New("carrier: unsupported type")
	ErrClassConflict   = errors.New("carrier: class name registered with another type")
)

var (
	binaryMarshalerType   = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	binaryUnmarshalerType = reflect.TypeOf((*encoding.BinaryUnmarshaler)(nil)).Elem()
)

type (
	FieldMetadata struct {
		Name  string
		Index int
		Type  reflect.Type
	}

	// ClassMetadata describes how values of one runtime type are laid out in
	// a graph store.
	ClassMetadata struct {
		ID     uint32
		Name   string
		Type   reflect.Type
		Fields []FieldMetadata

		// Values are stored through encoding.BinaryMarshaler.
		Binary bool
	}

	Catalog struct {
		mu        sync.RWMutex
		reflector *reflector.Reflector
		byType    map[reflect.Type]*ClassMetadata
		byName    map[string]*ClassMetadata
		nextID    uint32
	}
)

func New(r *reflector.Reflector) *Catalog {
	return &Catalog{
		reflector: r,
		byType:    make(map[reflect.Type]*ClassMetadata),
		byName:    make(map[string]*ClassMetadata),
	}
}

// Produce returns the metadata of t, registering it on first use. Producing
// an already known class returns the existing metadata.
func (c *Catalog) Produce(t reflect.Type) (*ClassMetadata, error) {
	if m, ok := c.ForType(t); ok {
		return m, nil
	}

	if err := Validate(t); err != nil {
		return nil, err
	}

	name := reflector.NameOf(t)
	m := &ClassMetadata{
		Name:   name,
		Type:   t,
		Binary: IsBinary(t),
	}
	if t.Kind() == reflect.Struct && !m.Binary {
		m.Fields = fieldsOf(t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Lost a race against another producer.
	if existing, ok := c.byType[t]; ok {
		return existing, nil
	}
	if existing, ok := c.byName[name]; ok && existing.Type != t {
		return nil, fmt.Errorf("%w: %s", ErrClassConflict, name)
	}

	c.nextID++
	m.ID = c.nextID
	c.byType[t] = m
	c.byName[name] = m

	if c.reflector != nil {
		c.reflector.RegisterType(t)
	}
	return m, nil
}

func (c *Catalog) ForType(t reflect.Type) (*ClassMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.byType[t]
	return m, ok
}

func (c *Catalog) ForName(name string) (*ClassMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.byName[name]
	return m, ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byType)
}

// IsStruct reports whether values of the class are stored field by field.
func (m *ClassMetadata) IsStruct() bool {
	return m.Type.Kind() == reflect.Struct && !m.Binary
}

// Field returns the position of the named field in m.Fields.
func (m *ClassMetadata) Field(name string) (int, bool) {
	for i, f := range m.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (m *ClassMetadata) FieldNames() []string {
	if len(m.Fields) == 0 {
		return nil
	}

	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// IsBinary reports whether t round-trips through MarshalBinary and
// UnmarshalBinary.
func IsBinary(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr || t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(binaryMarshalerType) && reflect.PointerTo(t).Implements(binaryUnmarshalerType)
}

// Validate checks that every value of t can be stored.
func Validate(t reflect.Type) error {
	return validate(t, make(map[reflect.Type]struct{}), "")
}

func validate(t reflect.Type, seen map[reflect.Type]struct{}, path string) error {
	if _, ok := seen[t]; ok {
		return nil
	}
	seen[t] = struct{}{}

	if IsBinary(t) {
		return nil
	}

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String,
		reflect.Interface:
		return nil
	case reflect.Array, reflect.Slice, reflect.Ptr:
		return validate(t.Elem(), seen, path)
	case reflect.Map:
		if err := validate(t.Key(), seen, path); err != nil {
			return err
		}
		return validate(t.Elem(), seen, path)
	case reflect.Struct:
		for _, f := range fieldsOf(t) {
			if err := validate(f.Type, seen, joinPath(path, f.Name)); err != nil {
				return err
			}
		}
		return nil
	}

	if path == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return fmt.Errorf("%w: %s (field %s)", ErrUnsupportedType, t, path)
}

func fieldsOf(t reflect.Type) []FieldMetadata {
	var fields []FieldMetadata
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name := sf.Name
		if tag, ok := sf.Tag.Lookup(tagName); ok {
			tag = strings.Split(tag, ",")[0]
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}

		fields = append(fields, FieldMetadata{
			Name:  name,
			Index: i,
			Type:  sf.Type,
		})
	}
	return fields
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
