package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

/*
 * shelfkeeper.v1.ShelfService
 *
 * Messages are protobuf well-known types so the service needs no generated
 * stubs:
 *
 *   SaveShelf      Struct{name, filter}      -> StringValue (shelf id)
 *   GetShelf       StringValue (shelf id)    -> Struct{id, name, filter, createdAt}
 *   ListShelves    Empty                     -> ListValue of GetShelf structs
 *   DeleteShelf    StringValue (shelf id)    -> Empty
 *   CountShelf     StringValue (shelf id)    -> Int64Value
 *   CompileFilter  StringValue (tree JSON)   -> Struct{sql, problems}
 *
 * filter is the rule tree JSON as a string, or a nested Struct on input.
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "shelfkeeper.v1.ShelfService"

// ShelfServiceServer is the server API for ShelfService.
type ShelfServiceServer interface {
	SaveShelf(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	GetShelf(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListShelves(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	DeleteShelf(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	CountShelf(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
	CompileFilter(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler adapts a typed method to grpc.MethodHandler the way generated
// code does.
func unaryHandler[Req any, Resp any](method string, call func(ShelfServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(ShelfServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

// ShelfServiceDesc describes ShelfService for grpc.Server.RegisterService.
var ShelfServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShelfServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SaveShelf", Handler: unaryHandler("SaveShelf", ShelfServiceServer.SaveShelf)},
		{MethodName: "GetShelf", Handler: unaryHandler("GetShelf", ShelfServiceServer.GetShelf)},
		{MethodName: "ListShelves", Handler: unaryHandler("ListShelves", ShelfServiceServer.ListShelves)},
		{MethodName: "DeleteShelf", Handler: unaryHandler("DeleteShelf", ShelfServiceServer.DeleteShelf)},
		{MethodName: "CountShelf", Handler: unaryHandler("CountShelf", ShelfServiceServer.CountShelf)},
		{MethodName: "CompileFilter", Handler: unaryHandler("CompileFilter", ShelfServiceServer.CompileFilter)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterShelfServiceServer registers srv with s.
func RegisterShelfServiceServer(s grpc.ServiceRegistrar, srv ShelfServiceServer) {
	s.RegisterService(&ShelfServiceDesc, srv)
}
