// Package relaypb implements the wire types described by relay.proto.
//
// The relay's build environment has no protoc, so these are not
// protoc-gen-go output: they are hand-written structs that encode and
// decode the same proto3 wire format protoc-gen-go would produce (tag/field
// numbers and wire types below match relay.proto exactly), built directly
// on google.golang.org/protobuf/encoding/protowire rather than on the
// descriptor-and-reflection machinery protoc-gen-go normally generates.
// They do not implement proto.Message / protoreflect.Message, so they ride
// over gRPC via the custom "relaypb" codec in codec.go instead of the
// standard "proto" codec.
package relaypb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is satisfied by every type in this package.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendMessage(b []byte, num protowire.Number, m Message) ([]byte, error) {
	enc, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, enc), nil
}

// consumeUnknown skips a field this package's decoder does not recognize,
// the same forward-compatible behavior protoc-gen-go generates.
func consumeUnknown(b []byte, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, fmt.Errorf("relaypb: malformed field: %w", protowire.ParseError(n))
	}
	return n, nil
}
