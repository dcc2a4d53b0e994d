package codec

import "google.golang.org/protobuf/proto"

// Protobuf is a ValueCodec for callers whose composite field values are
// generated proto messages.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g. func() *pb.Activities { return &pb.Activities{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
