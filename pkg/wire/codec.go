package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype this package registers. The server
// and client must both dial with this codec so that "application/grpc+rex"
// framing is understood on both ends.
const CodecName = "rex"

// jsonCodec marshals wire messages as JSON with base64-encoded byte
// payloads, with field names taken from the json struct tags on
// ExecuteRequestChunk/ProgramOutput and their parts. Real protobuf
// generated bindings would normally fill this role; rex uses grpc-go's codec
// extension point instead so the wire schema stays a handful of plain
// structs with no code-generation step.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
