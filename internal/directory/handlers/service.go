package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "directory.v1.DirectoryService"

// FullMethod returns the gRPC method path for the named operation.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// DirectoryServer is the server API for DirectoryService. Every method takes
// and returns a google.protobuf.Struct.
type DirectoryServer interface {
	Invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error)
}

var _ DirectoryServer = (*DirectoryHandler)(nil)

func methodHandler(name string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(DirectoryServer).Invoke(ctx, name, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(name),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(DirectoryServer).Invoke(ctx, name, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for DirectoryService, one unary
// method per route.
var ServiceDesc = func() grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, len(routes))
	for _, rt := range routes {
		methods = append(methods, grpc.MethodDesc{
			MethodName: rt.name,
			Handler:    methodHandler(rt.name),
		})
	}
	return grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*DirectoryServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "directory/v1/directory.proto",
	}
}()

// Client calls DirectoryService over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes the named operation with req as its field map.
func (c *Client) Call(ctx context.Context, name string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
