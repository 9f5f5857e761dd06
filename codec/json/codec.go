package json

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/pwnedgod/carrier/codec"
)

var errTrailingData = errors.New("json: trailing data after record")

type jsonCodec struct {
}

// NewCodec returns a codec that rejects records with unknown keys or
// trailing data.
func NewCodec() codec.Codec {
	return &jsonCodec{}
}

func (c jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
