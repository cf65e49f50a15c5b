package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "extgen.v1.Converter"

// Full method names, as seen by interceptors.
const (
	MethodConvert      = "/" + ServiceName + "/Convert"
	MethodConvertBatch = "/" + ServiceName + "/ConvertBatch"
	MethodGetSnippet   = "/" + ServiceName + "/GetSnippet"
)

// ConverterServer is the server API for the Converter service. Requests
// and responses are google.protobuf.Struct documents.
type ConverterServer interface {
	Convert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConvertBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSnippet(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterConverterServer registers srv with s.
func RegisterConverterServer(s grpc.ServiceRegistrar, srv ConverterServer) {
	s.RegisterService(&ConverterServiceDesc, srv)
}

// ConverterServiceDesc describes the Converter service.
var ConverterServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConverterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Convert", Handler: unaryHandler(MethodConvert, ConverterServer.Convert)},
		{MethodName: "ConvertBatch", Handler: unaryHandler(MethodConvertBatch, ConverterServer.ConvertBatch)},
		{MethodName: "GetSnippet", Handler: unaryHandler(MethodGetSnippet, ConverterServer.GetSnippet)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "extgen/v1/converter.proto",
}

type unaryMethod func(ConverterServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ConverterServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ConverterServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
