package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// gRPC methods of the service. Requests and replies are google.protobuf.Struct
// values carrying the same mappings as the stdio binding.
const (
	grpcServiceName = "imagealter.v1.ImageAlter"
	DescribeMethod  = "/" + grpcServiceName + "/Describe"
	TransformMethod = "/" + grpcServiceName + "/Transform"
)

// TransformServer is the server side of the gRPC binding
type TransformServer interface {
	Describe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Transform(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// RegisterTransformServer registers srv on s
func RegisterTransformServer(s grpc.ServiceRegistrar, srv TransformServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*TransformServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Describe", Handler: unaryHandler(TransformServer.Describe, DescribeMethod)},
		{MethodName: "Transform", Handler: unaryHandler(TransformServer.Transform, TransformMethod)},
	},
	Metadata: "imagealter/v1/imagealter.proto",
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(call func(TransformServer, context.Context, *structpb.Struct) (*structpb.Struct, error), fullMethod string) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TransformServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TransformServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
