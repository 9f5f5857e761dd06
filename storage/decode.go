package storage

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
)

// GetByID returns the object stored at id. Struct objects come back
// instantiated but not activated; boxed values are decoded immediately.
func (c *Container) GetByID(id ID) (interface{}, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if !c.readOnly {
		v, ok := c.objects[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrObjectNotFound, id)
		}
		return v.Interface(), nil
	}

	v, err := c.instantiate(id)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (c *Container) instantiate(id ID) (reflect.Value, error) {
	if v, ok := c.instances[id]; ok {
		return v, nil
	}

	record, err := c.readSlot(id)
	if err != nil {
		return reflect.Value{}, err
	}

	switch record.K {
	case kindStruct:
		rc, err := c.class(record.C)
		if err != nil {
			return reflect.Value{}, err
		}
		if !rc.meta.IsStruct() {
			return reflect.Value{}, fmt.Errorf("%w: object %d of non-struct class %s", ErrCorrupt, id, rc.meta.Name)
		}

		ptr := reflect.New(rc.meta.Type)
		c.instances[id] = ptr
		c.ids[keyOf(ptr)] = id
		c.pending[id] = record
		return ptr, nil

	case kindBoxed:
		rc, err := c.class(record.C)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(record.L) != 1 {
			return reflect.Value{}, fmt.Errorf("%w: boxed record %d", ErrCorrupt, id)
		}

		val := reflect.New(rc.meta.Type).Elem()
		d := decoder{c: c}
		if err := d.decode(record.L[0], val); err != nil {
			return reflect.Value{}, err
		}
		c.instances[id] = val
		c.activated[id] = true
		c.children[id] = d.children
		return val, nil
	}

	return reflect.Value{}, fmt.Errorf("%w: record %d has kind %d", ErrCorrupt, id, record.K)
}

func (c *Container) readSlot(id ID) (cell, error) {
	sr, ok := c.slots[id]
	if !ok {
		return cell{}, fmt.Errorf("%w: %d", ErrObjectNotFound, id)
	}

	data := make([]byte, sr.Length)
	if _, err := c.file.ReadAt(data, int64(sr.Address)); err != nil {
		return cell{}, fmt.Errorf("%w: slot %d: %v", ErrCorrupt, id, err)
	}

	var record cell
	if err := c.svc.Codec().Unmarshal(data, &record); err != nil {
		return cell{}, fmt.Errorf("%w: slot %d: %v", ErrCorrupt, id, err)
	}
	return record, nil
}

// Activate materializes the fields of obj and of the objects it reaches, as
// far as depth allows.
func (c *Container) Activate(obj interface{}, depth ActivationDepth) error {
	if c.closed {
		return ErrClosed
	}

	id := c.ID(obj)
	if id.IsNull() {
		return ErrNotStored
	}
	return c.ActivateByID(id, depth)
}

// ActivateByID is Activate for the object at id. Objects of a container
// opened for writing are live and always active.
func (c *Container) ActivateByID(id ID, depth ActivationDepth) error {
	if c.closed {
		return ErrClosed
	}
	if !c.readOnly {
		if _, ok := c.objects[id]; !ok {
			return fmt.Errorf("%w: %d", ErrObjectNotFound, id)
		}
		return nil
	}
	if _, err := c.instantiate(id); err != nil {
		return err
	}

	type step struct {
		id    ID
		depth ActivationDepth
	}

	// Breadth first, so each object is first reached with its largest
	// remaining depth.
	visited := make(map[ID]struct{})
	queue := []step{{id: id, depth: depth}}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		if !s.depth.RequiresActivation() {
			continue
		}
		if _, ok := visited[s.id]; ok {
			continue
		}
		visited[s.id] = struct{}{}

		children, err := c.activateOne(s.id)
		if err != nil {
			return err
		}

		next := s.depth.Descend()
		for _, child := range children {
			queue = append(queue, step{id: child, depth: next})
		}
	}
	return nil
}

// IsActive reports whether the fields of the object at id are materialized.
func (c *Container) IsActive(id ID) bool {
	if c.closed {
		return false
	}
	if !c.readOnly {
		_, ok := c.objects[id]
		return ok
	}
	return c.activated[id]
}

func (c *Container) activateOne(id ID) ([]ID, error) {
	if c.activated[id] {
		return c.children[id], nil
	}

	ptr, err := c.instantiate(id)
	if err != nil {
		return nil, err
	}
	if c.activated[id] {
		return c.children[id], nil
	}

	record := c.pending[id]
	rc, err := c.class(record.C)
	if err != nil {
		return nil, err
	}

	d := decoder{c: c}
	if err := d.fields(rc, record.L, ptr.Elem()); err != nil {
		return nil, fmt.Errorf("activate %s %d: %w", rc.meta.Name, id, err)
	}

	delete(c.pending, id)
	c.activated[id] = true
	c.children[id] = d.children
	return d.children, nil
}

// decoder fills reflect values from cells and collects the objects it
// references.
type decoder struct {
	c        *Container
	children []ID
}

func (d *decoder) fields(rc *resolvedClass, cells []cell, v reflect.Value) error {
	if len(cells) != len(rc.fieldMap) {
		return fmt.Errorf("%w: %d fields for class %s with %d", ErrCorrupt, len(cells), rc.record.Name, len(rc.fieldMap))
	}

	for i, fc := range cells {
		pos := rc.fieldMap[i]
		if pos < 0 {
			continue
		}

		f := rc.meta.Fields[pos]
		if err := d.decode(fc, v.Field(f.Index)); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

func (d *decoder) decode(cl cell, v reflect.Value) error {
	t := v.Type()

	switch cl.K {
	case kindNil:
		v.Set(reflect.Zero(t))
		return nil

	case kindBool:
		if t.Kind() != reflect.Bool {
			return mismatch(cl, t)
		}
		v.SetBool(cl.B)
		return nil

	case kindInt:
		return setInt(cl, v)

	case kindUint:
		return setUint(cl, v)

	case kindFloat:
		switch t.Kind() {
		case reflect.Float32, reflect.Float64:
			if v.OverflowFloat(cl.F) {
				return mismatch(cl, t)
			}
			v.SetFloat(cl.F)
			return nil
		}
		return mismatch(cl, t)

	case kindString:
		if t.Kind() != reflect.String {
			return mismatch(cl, t)
		}
		v.SetString(cl.S)
		return nil

	case kindBytes:
		if t.Kind() != reflect.Slice || t.Elem().Kind() != reflect.Uint8 {
			return mismatch(cl, t)
		}
		data := make([]byte, len(cl.X))
		copy(data, cl.X)
		v.SetBytes(data)
		return nil

	case kindBinary:
		ptr := reflect.New(t)
		u, ok := ptr.Interface().(encoding.BinaryUnmarshaler)
		if !ok || t.Kind() == reflect.Ptr {
			return mismatch(cl, t)
		}
		if err := u.UnmarshalBinary(cl.X); err != nil {
			return err
		}
		v.Set(ptr.Elem())
		return nil

	case kindRef:
		obj, err := d.c.instantiate(cl.R)
		if err != nil {
			return err
		}
		if !obj.Type().AssignableTo(t) {
			return mismatch(cl, t)
		}
		v.Set(obj)
		d.children = append(d.children, cl.R)
		return nil

	case kindPointer:
		if t.Kind() != reflect.Ptr {
			return mismatch(cl, t)
		}
		if len(cl.L) != 1 {
			return fmt.Errorf("%w: pointer cell", ErrCorrupt)
		}
		ptr := reflect.New(t.Elem())
		if err := d.decode(cl.L[0], ptr.Elem()); err != nil {
			return err
		}
		v.Set(ptr)
		return nil

	case kindList:
		switch t.Kind() {
		case reflect.Slice:
			s := reflect.MakeSlice(t, len(cl.L), len(cl.L))
			for i, e := range cl.L {
				if err := d.decode(e, s.Index(i)); err != nil {
					return err
				}
			}
			v.Set(s)
			return nil
		case reflect.Array:
			for i, e := range cl.L {
				if i >= t.Len() {
					break
				}
				if err := d.decode(e, v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
		return mismatch(cl, t)

	case kindMap:
		if t.Kind() != reflect.Map {
			return mismatch(cl, t)
		}
		if len(cl.L)%2 != 0 {
			return fmt.Errorf("%w: odd map cell", ErrCorrupt)
		}
		m := reflect.MakeMapWithSize(t, len(cl.L)/2)
		for i := 0; i < len(cl.L); i += 2 {
			key := reflect.New(t.Key()).Elem()
			if err := d.decode(cl.L[i], key); err != nil {
				return err
			}
			elem := reflect.New(t.Elem()).Elem()
			if err := d.decode(cl.L[i+1], elem); err != nil {
				return err
			}
			m.SetMapIndex(key, elem)
		}
		v.Set(m)
		return nil

	case kindStruct:
		rc, err := d.c.class(cl.C)
		if err != nil {
			return err
		}
		if rc.meta.Type != t {
			return mismatch(cl, t)
		}
		return d.fields(rc, cl.L, v)

	case kindBoxed:
		if t.Kind() != reflect.Interface {
			return mismatch(cl, t)
		}
		rc, err := d.c.class(cl.C)
		if err != nil {
			return err
		}
		if len(cl.L) != 1 {
			return fmt.Errorf("%w: boxed cell", ErrCorrupt)
		}
		if !rc.meta.Type.AssignableTo(t) {
			return mismatch(cl, t)
		}
		inner := reflect.New(rc.meta.Type).Elem()
		if err := d.decode(cl.L[0], inner); err != nil {
			return err
		}
		v.Set(inner)
		return nil
	}

	return fmt.Errorf("%w: cell kind %d", ErrCorrupt, cl.K)
}

func setInt(cl cell, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.OverflowInt(cl.I) {
			return mismatch(cl, v.Type())
		}
		v.SetInt(cl.I)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if cl.I < 0 || v.OverflowUint(uint64(cl.I)) {
			return mismatch(cl, v.Type())
		}
		v.SetUint(uint64(cl.I))
		return nil
	case reflect.Float32, reflect.Float64:
		v.SetFloat(float64(cl.I))
		return nil
	}
	return mismatch(cl, v.Type())
}

func setUint(cl cell, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.OverflowUint(cl.U) {
			return mismatch(cl, v.Type())
		}
		v.SetUint(cl.U)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if cl.U > math.MaxInt64 || v.OverflowInt(int64(cl.U)) {
			return mismatch(cl, v.Type())
		}
		v.SetInt(int64(cl.U))
		return nil
	case reflect.Float32, reflect.Float64:
		v.SetFloat(float64(cl.U))
		return nil
	}
	return mismatch(cl, v.Type())
}

func mismatch(cl cell, t reflect.Type) error {
	return fmt.Errorf("%w: kind %d into %s", ErrTypeMismatch, cl.K, t)
}
