package distworker

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated on every RPC via the grpc-encoding header.
// Registering a codec under this name is how distworker avoids protoc
// entirely: grpc-go's wire framing (length-prefixed messages over HTTP/2)
// is reused as-is, only the per-message encoding is swapped from
// protobuf to encoding/json.
const codecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec against
// plain Go structs (wire.go's DispatchRequest/WaitResponse/... types)
// instead of proto.Message, so the service needs no .proto file or
// generated stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("distworker: json marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("distworker: json unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
