package msgpack

import (
	"bytes"

	"github.com/pwnedgod/carrier/codec"
	"github.com/vmihailenco/msgpack/v5"
)

type msgpackCodec struct {
}

// NewCodec returns a codec writing integers and floats in their smallest
// msgpack form.
func NewCodec() codec.Codec {
	return &msgpackCodec{}
}

func (c msgpackCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	enc.UseCompactFloats(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal walks data once before decoding it, so a length prefix larger
// than the input fails at end of input instead of being allocated.
func (c msgpackCodec) Unmarshal(data []byte, v interface{}) error {
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Skip(); err != nil {
		return err
	}
	return msgpack.NewDecoder(bytes.NewReader(data)).Decode(v)
}
