package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/pwnedgod/carrier/adapter/memory"
	"github.com/pwnedgod/carrier/codec/msgpack"
	"github.com/pwnedgod/carrier/engine"
	"github.com/pwnedgod/carrier/logger/std"
	"github.com/pwnedgod/carrier/memfile"
	"github.com/pwnedgod/carrier/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type item struct {
	Name string
}

func writeGraph(t *testing.T) ([]byte, storage.ID) {
	t.Helper()

	svc, err := engine.New(memory.NewAdapter(), msgpack.NewCodec(), std.NewLoggerWithWriters(io.Discard, io.Discard, false))
	require.NoError(t, err)

	file := memfile.New()
	c, err := storage.Open(svc, file)
	require.NoError(t, err)

	id, err := c.Store(&item{Name: "a"})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	return file.Bytes(), id
}

func TestDump(t *testing.T) {
	data, id := writeGraph(t)
	log := std.NewLoggerWithWriters(io.Discard, io.Discard, false)

	var out bytes.Buffer
	require.NoError(t, dump(&out, log, data, "msgpack", int64(id)))

	var r report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &r))
	require.NotNil(t, r.Root)
	assert.True(t, r.Root.Present)
	assert.Equal(t, 1, r.Layout.Version)
	require.Len(t, r.Layout.Classes, 1)
	assert.Equal(t, "github.com/pwnedgod/carrier/cmd/graphdump.item", r.Layout.Classes[0].Name)
	assert.Equal(t, []string{"Name"}, r.Layout.Classes[0].Fields)
	require.Len(t, r.Layout.Slots, 1)
}

func TestDumpRejectsWrongCodec(t *testing.T) {
	data, _ := writeGraph(t)
	log := std.NewLoggerWithWriters(io.Discard, io.Discard, false)

	assert.Error(t, dump(io.Discard, log, data, "json", 0))
	assert.Error(t, dump(io.Discard, log, data, "xml", 0))
}

func TestDumpRejectsGarbage(t *testing.T) {
	log := std.NewLoggerWithWriters(io.Discard, io.Discard, false)

	err := dump(io.Discard, log, []byte("garbage garbage garbage"), "msgpack", 0)
	assert.ErrorIs(t, err, storage.ErrCorrupt)
}
