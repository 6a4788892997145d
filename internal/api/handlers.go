package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "cgroupanalyzer.v1.Analyzer"
	// AnalyzeMethod is the full method path of the Analyze RPC.
	AnalyzeMethod = "/" + ServiceName + "/Analyze"
)

// AnalyzerServer is implemented by the analysis service. The request carries
// the raw collector CSV; the response is the AnalysisResult as a Struct.
type AnalyzerServer interface {
	AnalyzeCSV(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// AnalyzerServiceDesc describes the Analyzer service. Payloads use well-known
// types so no generated stubs are needed.
var AnalyzerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Analyze",
			Handler:    analyzeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cgroupanalyzer/v1/analyzer.proto",
}

// RegisterAnalyzerServer registers srv on s.
func RegisterAnalyzerServer(s grpc.ServiceRegistrar, srv AnalyzerServer) {
	s.RegisterService(&AnalyzerServiceDesc, srv)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyzerServer).AnalyzeCSV(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AnalyzeMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyzerServer).AnalyzeCSV(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// AnalyzerClient calls a remote Analyzer service.
type AnalyzerClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalyzerClient wraps an established connection.
func NewAnalyzerClient(cc grpc.ClientConnInterface) *AnalyzerClient {
	return &AnalyzerClient{cc: cc}
}

// Analyze sends csv to the server and decodes the returned analysis.
func (c *AnalyzerClient) Analyze(ctx context.Context, csv []byte, opts ...grpc.CallOption) (models.AnalysisResult, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AnalyzeMethod, wrapperspb.Bytes(csv), out, opts...); err != nil {
		return models.AnalysisResult{}, err
	}
	return FromStruct(out)
}

// ToStruct converts an AnalysisResult into its Struct form, keyed by the JSON
// field names.
func ToStruct(result models.AnalysisResult) (*structpb.Struct, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return structpb.NewStruct(fields)
}

// FromStruct reverses ToStruct.
func FromStruct(s *structpb.Struct) (models.AnalysisResult, error) {
	var result models.AnalysisResult
	if s == nil {
		return result, fmt.Errorf("empty analysis payload")
	}
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("decode analysis: %w", err)
	}
	return result, nil
}
