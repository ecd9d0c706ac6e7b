package rpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// JSONCodec marshals gRPC messages as plain JSON. The API's request and
// response types are ordinary structs, not protobuf messages, so both
// server and clients force this codec on the Call method.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(JSONCodec{})
}
