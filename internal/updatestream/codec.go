package updatestream

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec is a minimal grpc/encoding.Codec. The upstream blockchain-updates
// service in this deployment is reached without a compiled protobuf stub
// (SPEC_FULL.md §D.1: "no .proto toolchain runs in this environment"), so
// wire messages ride over gRPC's pluggable codec mechanism as JSON instead
// of protobuf. gRPC's framing, flow control, and streaming semantics are
// otherwise unchanged.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
