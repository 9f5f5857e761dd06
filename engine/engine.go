package engine

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pwnedgod/carrier/adapter"
	"github.com/pwnedgod/carrier/catalog"
	"github.com/pwnedgod/carrier/codec"
	"github.com/pwnedgod/carrier/logger"
	"github.com/pwnedgod/carrier/reflector"
	"github.com/pwnedgod/carrier/storage"
)

var (
	ErrTransactionDone = errors.New("carrier: transaction already finished")
	ErrSlotNotFound    = errors.New("carrier: no slot at address")
	ErrForeignBuffer   = errors.New("carrier: buffer belongs to another transaction")
)

const (
	DefaultNodeID = 1

	// Slots never expire by default.
	DefaultSlotTTL = time.Duration(0)
)

type (
	Option func(*Container)

	// Container is the engine context graphs are marshalled against. It owns
	// the class registry and the durable slot store.
	Container struct {
		adapter   adapter.Adapter
		codec     codec.Codec
		logger    logger.Logger
		reflector *reflector.Reflector
		catalog   *catalog.Catalog

		nodeID  int64
		slotTTL time.Duration
		node    *snowflake.Node
	}
)

var _ storage.Service = (*Container)(nil)

// WithNodeID sets the snowflake node slot addresses are generated on.
// Engines sharing an adapter must use distinct node ids.
func WithNodeID(nodeID int64) Option {
	return func(c *Container) {
		c.nodeID = nodeID
	}
}

func WithSlotTTL(ttl time.Duration) Option {
	return func(c *Container) {
		if ttl < 0 {
			ttl = 0
		}
		c.slotTTL = ttl
	}
}

// WithReflector shares a reflector, and the classes registered with it, with
// the engine.
func WithReflector(r *reflector.Reflector) Option {
	return func(c *Container) {
		c.reflector = r
	}
}

func New(adapter adapter.Adapter, codec codec.Codec, logger logger.Logger, opts ...Option) (*Container, error) {
	c := &Container{
		adapter: adapter,
		codec:   codec,
		logger:  logger,
		nodeID:  DefaultNodeID,
		slotTTL: DefaultSlotTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.reflector == nil {
		c.reflector = reflector.New()
	}
	c.catalog = catalog.New(c.reflector)

	node, err := snowflake.NewNode(c.nodeID)
	if err != nil {
		return nil, err
	}
	c.node = node

	return c, nil
}

func (c *Container) Reflector() *reflector.Reflector {
	return c.reflector
}

func (c *Container) Catalog() *catalog.Catalog {
	return c.catalog
}

func (c *Container) Codec() codec.Codec {
	return c.codec
}

func (c *Container) Logger() logger.Logger {
	return c.logger
}

// Register makes the classes of samples resolvable when graphs are read
// back through this engine.
func (c *Container) Register(samples ...interface{}) {
	c.reflector.Register(samples...)
}

func (c *Container) Begin(ctx context.Context) *Transaction {
	return &Transaction{
		c:       c,
		ctx:     ctx,
		pending: make(map[int64]*StatefulBuffer),
		freed:   make(map[int64]bool),
	}
}

func (c *Container) nextAddress() int64 {
	return c.node.Generate().Int64()
}
