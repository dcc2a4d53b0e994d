package codec

import "fmt"

// Limit wraps another ValueCodec to enforce a maximum allowed payload
// size at Decode time. Encode is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// Typical use: the mirror partition is shared with other writers and a
// foreign oversized value must not blow up a reader.
type Limit[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner ValueCodec[V]
	// MaxDecode is the maximum permitted length (in bytes) of the
	// incoming payload for Decode. Longer payloads error without
	// invoking Inner.
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
