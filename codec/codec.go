// Package codec maps entities to and from the flat field form stored
// in backing-store hashes.
//
// Two contracts live here:
//   - Codec[E]: entity <-> map[string]string, one per entity type. The
//     default implementations in this package cover every mirrored type.
//   - ValueCodec[V]: V <-> []byte, used for composite fields that do
//     not flatten into a single scalar (activity lists, feature lists,
//     role id lists). Pluggable: Msgpack by default, JSON/CBOR/Protobuf
//     available.
//
// Nested users are not embedded: serializers store a user_id field and
// the owning resource mirrors the user record separately. Context
// carries the re-resolved user back into Deserialize.
package codec

import (
	"fmt"
	"strconv"

	"github.com/unkn0wn-root/redistate/types"
)

// Context supplies anything a deserializer needs from outside the
// record itself.
type Context struct {
	// User is the pre-resolved nested user for records that store only
	// a user_id reference. Nil when the reference was absent or the
	// user record is gone.
	User *types.User
}

// Codec converts one entity type to and from its stored field map.
type Codec[E any] interface {
	Serialize(e E) (map[string]string, error)
	Deserialize(fields map[string]string, cx Context) (E, error)
}

// ValueCodec encodes one composite field value to bytes.
type ValueCodec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

func putID(m map[string]string, key string, id types.Snowflake) {
	if id != 0 {
		m[key] = id.String()
	}
}

func getID(m map[string]string, key string) (types.Snowflake, error) {
	v, ok := m[key]
	if !ok {
		return 0, nil
	}
	id, err := types.ParseSnowflake(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return id, nil
}

func putBool(m map[string]string, key string, b bool) {
	if b {
		m[key] = "1"
	} else {
		m[key] = "0"
	}
}

func getBool(m map[string]string, key string) bool { return m[key] == "1" }

func putInt(m map[string]string, key string, v int64) {
	m[key] = strconv.FormatInt(v, 10)
}

func getInt(m map[string]string, key string) (int64, error) {
	v, ok := m[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

// encOpt encodes v with c (Msgpack when c is nil) unless v is empty,
// in which case the field is omitted entirely.
func encOpt[V any](m map[string]string, key string, c ValueCodec[[]V], v []V) error {
	if len(v) == 0 {
		return nil
	}
	if c == nil {
		c = Msgpack[[]V]{}
	}
	b, err := c.Encode(v)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	m[key] = string(b)
	return nil
}

// decOpt decodes the composite field at key; absent fields yield nil.
func decOpt[V any](m map[string]string, key string, c ValueCodec[[]V]) ([]V, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	if c == nil {
		c = Msgpack[[]V]{}
	}
	v, err := c.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return v, nil
}
