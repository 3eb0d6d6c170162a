package relaypb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is registered as the gRPC wire codec for every RelayService
// call (see relay_grpc.go's CallOption on the client; the server selects
// the registered codec from the request's content subtype). It is
// distinct from gRPC's built-in "proto" codec because these message types do not implement proto.Message.
const codecName = "relaypb"

func init() {
	encoding.RegisterCodec(messageCodec{})
}

type messageCodec struct{}

func (messageCodec) Name() string { return codecName }

func (messageCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("relaypb: codec: %T does not implement relaypb.Message", v)
	}
	return m.Marshal()
}

func (messageCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("relaypb: codec: %T does not implement relaypb.Message", v)
	}
	return m.Unmarshal(data)
}
