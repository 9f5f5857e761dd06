package storage

import (
	"errors"

	"github.com/pwnedgod/carrier/catalog"
	"github.com/pwnedgod/carrier/codec"
	"github.com/pwnedgod/carrier/logger"
	"github.com/pwnedgod/carrier/reflector"
)

var (
	ErrObjectNotFound     = errors.New("carrier: no object stored at id")
	ErrClassNotFound      = errors.New("carrier: class cannot be resolved")
	ErrCorrupt            = errors.New("carrier: corrupt graph buffer")
	ErrUnsupportedVersion = errors.New("carrier: unsupported format version")
	ErrTypeMismatch       = errors.New("carrier: stored value does not fit target type")
	ErrClosed             = errors.New("carrier: container closed")
	ErrReadOnly           = errors.New("carrier: container opened read-only")
	ErrNotStored          = errors.New("carrier: object not known to container")
	ErrValueCycle         = errors.New("carrier: value contains itself without passing through an object")
	ErrTooLarge           = errors.New("carrier: graph exceeds the addressable buffer size")
)

// ID identifies an object inside one graph store. Non-positive ids mean no
// object.
type ID int64

const NoID ID = 0

func (id ID) IsNull() bool {
	return id <= 0
}

// Service is the engine context a transient container is scoped to. Class
// names are resolved through its reflector and registered in its catalog.
type Service interface {
	Reflector() *reflector.Reflector
	Catalog() *catalog.Catalog
	Codec() codec.Codec
	Logger() logger.Logger
}
