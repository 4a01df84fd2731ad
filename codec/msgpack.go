package codec

import (
	"bytes"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrTrailingData = errors.New("codec: trailing data after value")

// Msgpack serializes values with vmihailenco/msgpack/v5. The zero value is
// ready to use and reads `msgpack:"..."` tags. JSONTags makes it read
// `json:"..."` tags instead, so one struct can back both a JSON and a
// Msgpack cache. A payload with bytes left after the value is rejected.
type Msgpack[V any] struct {
	JSONTags bool
}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (c Msgpack[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if c.JSONTags {
		enc.SetCustomStructTag("json")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	r := bytes.NewReader(b)
	dec := msgpack.NewDecoder(r)
	if c.JSONTags {
		dec.SetCustomStructTag("json")
	}
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if r.Len() != 0 {
		return v, ErrTrailingData
	}
	return v, nil
}
