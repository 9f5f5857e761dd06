package json_test

import (
	"testing"

	"github.com/pwnedgod/carrier/codec/json"
	"github.com/stretchr/testify/assert"
)

type record struct {
	Name string `json:"n"`
}

func TestUnmarshalIsStrict(t *testing.T) {
	c := json.NewCodec()

	var r record
	assert.NoError(t, c.Unmarshal([]byte(`{"n":"a"}`), &r))
	assert.Equal(t, "a", r.Name)

	assert.Error(t, c.Unmarshal([]byte(`{"n":"a","x":1}`), &r))
	assert.Error(t, c.Unmarshal([]byte(`{"n":"a"} {"n":"b"}`), &r))
}
