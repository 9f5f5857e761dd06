package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pwnedgod/carrier/codec"
)

const (
	headerSize    = 16
	formatVersion = 1
)

var magic = [4]byte{'C', 'R', 'G', '1'}

type (
	// header sits at address 0 and points at the index written on close.
	header struct {
		version   uint8
		indexAddr uint32
		indexLen  uint32
	}

	classRecord struct {
		ID     uint32   `msgpack:"i" json:"i"`
		Name   string   `msgpack:"n" json:"n"`
		Fields []string `msgpack:"f,omitempty" json:"f,omitempty"`
	}

	slotRecord struct {
		ID      ID     `msgpack:"i" json:"i"`
		Address uint32 `msgpack:"a" json:"a"`
		Length  uint32 `msgpack:"l" json:"l"`
	}

	index struct {
		Classes []classRecord `msgpack:"c,omitempty" json:"c,omitempty"`
		Slots   []slotRecord  `msgpack:"s,omitempty" json:"s,omitempty"`
	}
)

// checkAddressable fails when a record at addr of length n does not fit the
// 32-bit addresses of the index.
func checkAddressable(addr int64, n int) error {
	if addr < 0 || n < 0 || addr+int64(n) > math.MaxUint32 {
		return fmt.Errorf("%w: record at %d of %d bytes", ErrTooLarge, addr, n)
	}
	return nil
}

func (h header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	buf[4] = h.version
	binary.BigEndian.PutUint32(buf[8:12], h.indexAddr)
	binary.BigEndian.PutUint32(buf[12:16], h.indexLen)
	return buf, nil
}

func (h *header) UnmarshalBinary(d []byte) error {
	if len(d) < headerSize {
		return fmt.Errorf("%w: %d byte header", ErrCorrupt, len(d))
	}
	if [4]byte{d[0], d[1], d[2], d[3]} != magic {
		return fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	h.version = d[4]
	h.indexAddr = binary.BigEndian.Uint32(d[8:12])
	h.indexLen = binary.BigEndian.Uint32(d[12:16])
	return nil
}

type (
	// Layout describes the contents of a serialized graph.
	Layout struct {
		Version      int         `yaml:"version" json:"version"`
		Length       int         `yaml:"length" json:"length"`
		IndexAddress int         `yaml:"indexAddress" json:"indexAddress"`
		IndexLength  int         `yaml:"indexLength" json:"indexLength"`
		Classes      []ClassInfo `yaml:"classes" json:"classes"`
		Slots        []SlotInfo  `yaml:"slots" json:"slots"`
	}

	ClassInfo struct {
		ID     uint32   `yaml:"id" json:"id"`
		Name   string   `yaml:"name" json:"name"`
		Fields []string `yaml:"fields,omitempty" json:"fields,omitempty"`
	}

	SlotInfo struct {
		ID      ID  `yaml:"id" json:"id"`
		Address int `yaml:"address" json:"address"`
		Length  int `yaml:"length" json:"length"`
	}
)

// Inspect reads the header and index of data without resolving any class.
func Inspect(data []byte, c codec.Codec) (*Layout, error) {
	h, idx, err := readIndex(data, c)
	if err != nil {
		return nil, err
	}

	layout := &Layout{
		Version:      int(h.version),
		Length:       len(data),
		IndexAddress: int(h.indexAddr),
		IndexLength:  int(h.indexLen),
	}
	for _, cr := range idx.Classes {
		layout.Classes = append(layout.Classes, ClassInfo{ID: cr.ID, Name: cr.Name, Fields: cr.Fields})
	}
	for _, sr := range idx.Slots {
		layout.Slots = append(layout.Slots, SlotInfo{ID: sr.ID, Address: int(sr.Address), Length: int(sr.Length)})
	}
	return layout, nil
}

func readIndex(data []byte, c codec.Codec) (header, index, error) {
	var h header
	if err := h.UnmarshalBinary(data); err != nil {
		return h, index{}, err
	}
	if h.version == 0 {
		return h, index{}, fmt.Errorf("%w: header not finalized", ErrCorrupt)
	}
	if h.version > formatVersion {
		return h, index{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.version)
	}

	start := int(h.indexAddr)
	end := start + int(h.indexLen)
	if start < headerSize || end > len(data) || end < start {
		return h, index{}, fmt.Errorf("%w: index out of bounds", ErrCorrupt)
	}

	var idx index
	if err := c.Unmarshal(data[start:end], &idx); err != nil {
		return h, index{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	for _, sr := range idx.Slots {
		if int(sr.Address) < headerSize || int(sr.Address)+int(sr.Length) > start {
			return h, index{}, fmt.Errorf("%w: slot %d out of bounds", ErrCorrupt, sr.ID)
		}
	}
	return h, idx, nil
}
