package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The services carry google.protobuf.Struct on the wire so no generated code
// is needed. Field names inside the structs are snake_case.
const (
	BookingsServiceName = "calbook.v1.Bookings"
	OwnersServiceName   = "calbook.v1.Owners"
)

type BookingsHandler interface {
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type OwnersHandler interface {
	CreateOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListOwners(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

func unaryHandler(fullMethod string, pick func(srv any) structMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		method := pick(srv)
		if interceptor == nil {
			return method(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return method(ctx, req.(*structpb.Struct))
		})
	}
}

func methodDesc(service, name string, pick func(srv any) structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler:    unaryHandler(FullMethod(service, name), pick),
	}
}

var bookingsServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingsServiceName,
	HandlerType: (*BookingsHandler)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(BookingsServiceName, "CreateBooking", func(srv any) structMethod { return srv.(BookingsHandler).CreateBooking }),
		methodDesc(BookingsServiceName, "GetBooking", func(srv any) structMethod { return srv.(BookingsHandler).GetBooking }),
		methodDesc(BookingsServiceName, "ListBookings", func(srv any) structMethod { return srv.(BookingsHandler).ListBookings }),
		methodDesc(BookingsServiceName, "UpdateBooking", func(srv any) structMethod { return srv.(BookingsHandler).UpdateBooking }),
		methodDesc(BookingsServiceName, "DeleteBooking", func(srv any) structMethod { return srv.(BookingsHandler).DeleteBooking }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calbook/v1/bookings.proto",
}

var ownersServiceDesc = grpc.ServiceDesc{
	ServiceName: OwnersServiceName,
	HandlerType: (*OwnersHandler)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(OwnersServiceName, "CreateOwner", func(srv any) structMethod { return srv.(OwnersHandler).CreateOwner }),
		methodDesc(OwnersServiceName, "GetOwner", func(srv any) structMethod { return srv.(OwnersHandler).GetOwner }),
		methodDesc(OwnersServiceName, "ListOwners", func(srv any) structMethod { return srv.(OwnersHandler).ListOwners }),
		methodDesc(OwnersServiceName, "UpdateOwner", func(srv any) structMethod { return srv.(OwnersHandler).UpdateOwner }),
		methodDesc(OwnersServiceName, "DeleteOwner", func(srv any) structMethod { return srv.(OwnersHandler).DeleteOwner }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calbook/v1/owners.proto",
}

func RegisterBookingsServer(s grpc.ServiceRegistrar, srv BookingsHandler) {
	s.RegisterService(&bookingsServiceDesc, srv)
}

func RegisterOwnersServer(s grpc.ServiceRegistrar, srv OwnersHandler) {
	s.RegisterService(&ownersServiceDesc, srv)
}
