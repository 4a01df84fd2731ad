package codec

import (
	"errors"
	"fmt"
)

// DefaultMaxPayload bounds a single entry payload when Limit.Max is 0.
// Every stored entry also carries a 33-byte header, and providers such as
// bigcache reject entries larger than a few MiB.
const DefaultMaxPayload = 4 << 20

var ErrTooLarge = errors.New("codec: payload too large")

// Limit wraps another codec and refuses payloads larger than Max bytes in
// both directions. Max == 0 means DefaultMaxPayload; Max < 0 disables the
// check. An oversized fetched value is served but not stored; an oversized
// stored payload surfaces as a value_decode miss and is refetched.
type Limit[V any] struct {
	Inner Codec[V]
	Max   int
}

func (c Limit[V]) max() int {
	if c.Max == 0 {
		return DefaultMaxPayload
	}
	return c.Max
}

func (c Limit[V]) check(n int) error {
	if m := c.max(); m > 0 && n > m {
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, n, m)
	}
	return nil
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if err := c.check(len(b)); err != nil {
		return nil, err
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if err := c.check(len(b)); err != nil {
		var zero V
		return zero, err
	}
	return c.Inner.Decode(b)
}
