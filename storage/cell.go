package storage

type kind uint8

const (
	kindNil kind = iota
	kindBool
	kindInt
	kindUint
	kindFloat
	kindString
	kindBytes
	kindBinary
	kindRef
	kindPointer
	kindList
	kindMap
	kindStruct
	kindBoxed
)

// cell is one encoded value. Slots hold a kindStruct cell for objects and a
// kindBoxed cell for value roots.
//
//	kindRef     R is the referenced object
//	kindPointer L[0] is the pointee
//	kindList    L holds the elements
//	kindMap     L alternates keys and values
//	kindStruct  C is the class, L the fields in class order
//	kindBoxed   C is the dynamic class, L[0] the value
type cell struct {
	K kind    `msgpack:"k" json:"k"`
	B bool    `msgpack:"b,omitempty" json:"b,omitempty"`
	I int64   `msgpack:"i,omitempty" json:"i,omitempty"`
	U uint64  `msgpack:"u,omitempty" json:"u,omitempty"`
	F float64 `msgpack:"f,omitempty" json:"f,omitempty"`
	S string  `msgpack:"s,omitempty" json:"s,omitempty"`
	X []byte  `msgpack:"x,omitempty" json:"x,omitempty"`
	R ID      `msgpack:"r,omitempty" json:"r,omitempty"`
	C uint32  `msgpack:"c,omitempty" json:"c,omitempty"`
	L []cell  `msgpack:"l,omitempty" json:"l,omitempty"`
}
