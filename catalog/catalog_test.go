package catalog_test

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/pwnedgod/carrier/catalog"
	"github.com/pwnedgod/carrier/reflector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	Number  string
	Owner   string `carrier:"owner"`
	Ignored int    `carrier:"-"`
	hidden  bool
	Opened  time.Time
	Parent  *account
}

type withFunc struct {
	Name     string
	Callback func()
}

type withNestedChan struct {
	Inner struct {
		Events []chan int
	}
}

func TestProduceIsIdempotent(t *testing.T) {
	c := catalog.New(reflector.New())
	typ := reflect.TypeOf(account{})

	first, err := c.Produce(typ)
	require.NoError(t, err)
	second, err := c.Produce(typ)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestProduceDescribesExportedFields(t *testing.T) {
	c := catalog.New(reflector.New())

	m, err := c.Produce(reflect.TypeOf(account{}))
	require.NoError(t, err)

	assert.True(t, m.IsStruct())
	assert.False(t, m.Binary)
	assert.Equal(t, []string{"Number", "owner", "Opened", "Parent"}, m.FieldNames())
	assert.Equal(t, reflector.NameOf(reflect.TypeOf(account{})), m.Name)

	idx, ok := m.Field("owner")
	assert.True(t, ok)
	assert.Equal(t, 1, m.Fields[idx].Index)

	_, ok = m.Field("Ignored")
	assert.False(t, ok)
}

func TestProduceRegistersWithReflector(t *testing.T) {
	r := reflector.New()
	c := catalog.New(r)

	m, err := c.Produce(reflect.TypeOf(account{}))
	require.NoError(t, err)

	typ, ok := r.ForName(m.Name)
	assert.True(t, ok)
	assert.Equal(t, reflect.TypeOf(account{}), typ)

	byName, ok := c.ForName(m.Name)
	assert.True(t, ok)
	assert.Same(t, m, byName)
}

func TestBinaryTypes(t *testing.T) {
	c := catalog.New(reflector.New())

	m, err := c.Produce(reflect.TypeOf(time.Time{}))
	require.NoError(t, err)

	assert.True(t, m.Binary)
	assert.False(t, m.IsStruct())
	assert.Empty(t, m.Fields)
	assert.False(t, catalog.IsBinary(reflect.TypeOf(&time.Time{})))
}

func TestUnsupportedTypes(t *testing.T) {
	c := catalog.New(reflector.New())

	cases := []interface{}{
		make(chan int),
		func() {},
		complex(1, 2),
		withFunc{},
		withNestedChan{},
		map[string]func(){},
	}

	for _, v := range cases {
		_, err := c.Produce(reflect.TypeOf(v))
		assert.ErrorIs(t, err, catalog.ErrUnsupportedType, "%T", v)
	}
	assert.Equal(t, 0, c.Len())
}

func TestUnsupportedFieldIsNamed(t *testing.T) {
	err := catalog.Validate(reflect.TypeOf(withNestedChan{}))
	require.ErrorIs(t, err, catalog.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "Inner.Events")
}

func TestConcurrentProduce(t *testing.T) {
	c := catalog.New(reflector.New())
	typ := reflect.TypeOf(account{})

	var wg sync.WaitGroup
	results := make([]*catalog.ClassMetadata, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.Produce(typ)
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range results {
		assert.Same(t, results[0], m)
	}
	assert.Equal(t, 1, c.Len())
}
