package storage

import (
	"fmt"
	"reflect"

	"github.com/pwnedgod/carrier/catalog"
	"github.com/pwnedgod/carrier/memfile"
)

type (
	objectKey struct {
		ptr uintptr
		typ reflect.Type
	}

	// valueKey identifies a map, slice or pointer while it is being
	// embedded.
	valueKey struct {
		ptr uintptr
		typ reflect.Type
		len int
	}

	resolvedClass struct {
		record classRecord
		meta   *catalog.ClassMetadata

		// fieldMap[i] is the position in meta.Fields of the i-th stored field,
		// or -1 when the destination class no longer has it.
		fieldMap []int
		err      error
	}

	// Container is a graph store bound to a memory file. An empty file opens
	// for writing; a non-empty one is parsed and opens read-only.
	Container struct {
		svc      Service
		file     *memfile.MemoryFile
		readOnly bool
		closed   bool

		nextID ID
		ids    map[objectKey]ID

		// Write side.
		objects     map[ID]reflect.Value
		queue       []ID
		embedding   map[valueKey]struct{}
		localIDs    map[*catalog.ClassMetadata]uint32
		classTable  []classRecord
		slotRecords []slotRecord

		// Read side.
		slots     map[ID]slotRecord
		classes   map[uint32]*resolvedClass
		instances map[ID]reflect.Value
		pending   map[ID]cell
		activated map[ID]bool
		children  map[ID][]ID
	}
)

func Open(svc Service, file *memfile.MemoryFile) (*Container, error) {
	c := &Container{
		svc:  svc,
		file: file,
		ids:  make(map[objectKey]ID),
	}

	if file.Len() == 0 {
		c.objects = make(map[ID]reflect.Value)
		c.embedding = make(map[valueKey]struct{})
		c.localIDs = make(map[*catalog.ClassMetadata]uint32)

		// Reserve the header, it is written on close.
		if _, err := file.WriteAt(make([]byte, headerSize), 0); err != nil {
			return nil, err
		}
		return c, nil
	}

	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) load() error {
	data := c.file.Bytes()
	_, idx, err := readIndex(data, c.svc.Codec())
	if err != nil {
		return err
	}

	c.readOnly = true
	c.slots = make(map[ID]slotRecord, len(idx.Slots))
	c.classes = make(map[uint32]*resolvedClass, len(idx.Classes))
	c.instances = make(map[ID]reflect.Value)
	c.pending = make(map[ID]cell)
	c.activated = make(map[ID]bool)
	c.children = make(map[ID][]ID)

	for _, sr := range idx.Slots {
		c.slots[sr.ID] = sr
	}
	for _, cr := range idx.Classes {
		c.classes[cr.ID] = c.resolve(cr)
	}
	return nil
}

// resolve binds a stored class record to the destination context. Failures
// are deferred until an object of the class is used.
func (c *Container) resolve(cr classRecord) *resolvedClass {
	rc := &resolvedClass{record: cr}

	t, ok := c.svc.Reflector().ForName(cr.Name)
	if !ok {
		rc.err = fmt.Errorf("%w: %s", ErrClassNotFound, cr.Name)
		return rc
	}

	meta, err := c.svc.Catalog().Produce(t)
	if err != nil {
		rc.err = err
		return rc
	}

	rc.meta = meta
	rc.fieldMap = make([]int, len(cr.Fields))
	for i, name := range cr.Fields {
		pos, ok := meta.Field(name)
		if !ok {
			pos = -1
		}
		rc.fieldMap[i] = pos
	}
	return rc
}

func (c *Container) class(local uint32) (*resolvedClass, error) {
	rc, ok := c.classes[local]
	if !ok {
		return nil, fmt.Errorf("%w: unknown class %d", ErrCorrupt, local)
	}
	if rc.err != nil {
		return nil, rc.err
	}
	return rc, nil
}

// ProduceClassMetadata registers the class of obj with the service catalog
// and records it in the store's own class table.
func (c *Container) ProduceClassMetadata(obj interface{}) (*catalog.ClassMetadata, error) {
	if err := c.writable(); err != nil {
		return nil, err
	}

	t, err := c.svc.Reflector().ForObject(obj)
	if err != nil {
		return nil, err
	}

	meta, _, err := c.classFor(t)
	return meta, err
}

func (c *Container) classFor(t reflect.Type) (*catalog.ClassMetadata, uint32, error) {
	meta, err := c.svc.Catalog().Produce(t)
	if err != nil {
		return nil, 0, err
	}

	if local, ok := c.localIDs[meta]; ok {
		return meta, local, nil
	}

	local := uint32(len(c.classTable) + 1)
	c.localIDs[meta] = local
	c.classTable = append(c.classTable, classRecord{
		ID:     local,
		Name:   meta.Name,
		Fields: meta.FieldNames(),
	})
	return meta, local, nil
}

// ID returns the id assigned to a stored or fetched object pointer.
func (c *Container) ID(obj interface{}) ID {
	if obj == nil {
		return NoID
	}

	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return NoID
	}
	return c.ids[keyOf(v)]
}

func (c *Container) ReadOnly() bool {
	return c.readOnly
}

func (c *Container) Closed() bool {
	return c.closed
}

// Close finalizes the file when writing and releases all state. Closing twice
// is a no-op.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if !c.readOnly {
		err = c.finalize()
	}

	c.ids = nil
	c.objects = nil
	c.queue = nil
	c.embedding = nil
	c.localIDs = nil
	c.slots = nil
	c.classes = nil
	c.instances = nil
	c.pending = nil
	c.activated = nil
	c.children = nil
	return err
}

func (c *Container) finalize() error {
	idx := index{
		Classes: c.classTable,
		Slots:   c.slotRecords,
	}

	data, err := c.svc.Codec().Marshal(&idx)
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

	h := header{
		version:   formatVersion,
		indexAddr: uint32(addr),
		indexLen:  uint32(len(data)),
	}
	hdr, err := h.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = c.file.WriteAt(hdr, 0)
	return err
}

func (c *Container) writable() error {
	if c.closed {
		return ErrClosed
	}
	if c.readOnly {
		return ErrReadOnly
	}
	return nil
}

func keyOf(v reflect.Value) objectKey {
	return objectKey{ptr: v.Pointer(), typ: v.Type()}
}
