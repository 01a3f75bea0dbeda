// Package rpc defines the jobs.v1.JobsService gRPC contract: message types,
// the service descriptor, and a client stub. Messages travel as JSON through
// a codec registered under the "json" content subtype, so no generated
// protobuf code is involved.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype ("application/grpc+json").
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallOption selects the JSON codec on a client call. NewJobsServiceClient
// applies it to every call; it is exported for callers using conn.Invoke.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
