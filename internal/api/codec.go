package api

import (
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype used by the control plane. Clients
// select it with grpc.CallContentSubtype(CodecName).
const CodecName = "json"

var wire = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonCodec carries the control-plane messages as JSON instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return wire.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return wire.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
