package sm

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is the gRPC content-subtype this codec answers to
// ("application/grpc+json" on the wire). Registered in init() below so
// both client and server pick it up without a protoc-generated codec.
const jsonCodecName = "json"

// jsonCodec marshals gRPC messages as JSON instead of protobuf. This
// control plane is a handful of one-shot unary calls, not a
// performance-sensitive data path, so there's no case for vendoring or
// hand-writing .proto/.pb.go output just to get this RPC off the ground.
type jsonCodec struct{}

func (jsonCodec) Name() string { return jsonCodecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
