package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var ErrNilMessage = errors.New("codec: nil proto message")

var (
	protoMarshal = proto.MarshalOptions{Deterministic: true}
	// unknown fields from a newer schema are dropped, not kept in the value
	protoUnmarshal = proto.UnmarshalOptions{DiscardUnknown: true}
)

// Protobuf encodes proto messages deterministically. ctor must return a
// fresh, non-nil message (e.g. func() *pb.Feed { return &pb.Feed{} }).
// A nil message is refused on encode, since it would read back as an empty
// one.
type Protobuf[T proto.Message] struct {
	new func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	if ctor == nil {
		panic("codec: NewProtobuf needs a constructor")
	}
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	if any(v) == nil || !v.ProtoReflect().IsValid() {
		return nil, ErrNilMessage
	}
	return protoMarshal.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := protoUnmarshal.Unmarshal(b, m)
	return m, err
}
