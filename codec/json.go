package codec

import "encoding/json"

// JSON is a ValueCodec for callers that want composite fields readable
// from redis-cli and other processes without a msgpack decoder.
type JSON[V any] struct{}

var _ ValueCodec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
