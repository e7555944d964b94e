package distworker

import (
	"context"

	"google.golang.org/grpc"
)

// WorkerService is the RPC surface a distributed worker exposes. It
// mirrors internal/scheduler.WorkerPool's three verbs (dispatch, wait,
// cancel) one-for-one; Server (server.go) implements it against
// task.RunChain, Pool (client.go) is the scheduler.WorkerPool adapter
// that calls it.
type WorkerService interface {
	DispatchTask(context.Context, *DispatchRequest) (*DispatchResponse, error)
	WaitForCompletion(context.Context, *WaitRequest) (*WaitResponse, error)
	CancelTask(context.Context, *CancelRequest) (*CancelResponse, error)
}

// serviceName is the gRPC service path every method is registered
// under, in lieu of one generated from a .proto package+service name.
const serviceName = "distframe.distworker.WorkerService"

func dispatchTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DispatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerService).DispatchTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/DispatchTask"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerService).DispatchTask(ctx, req.(*DispatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func waitForCompletionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(WaitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerService).WaitForCompletion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/WaitForCompletion"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerService).WaitForCompletion(ctx, req.(*WaitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerService).CancelTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/CancelTask"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerService).CancelTask(ctx, req.(*CancelRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is the hand-written analogue of a protoc-generated
// _ServiceDesc: it is what would otherwise come out of
// protoc-gen-go-grpc, built directly against the json-codec wire types
// in wire.go instead of generated protobuf message types.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*WorkerService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DispatchTask", Handler: dispatchTaskHandler},
		{MethodName: "WaitForCompletion", Handler: waitForCompletionHandler},
		{MethodName: "CancelTask", Handler: cancelTaskHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/distworker/service.go",
}

// RegisterWorkerServiceServer registers impl against s the way a
// generated RegisterWorkerServiceServer function would.
func RegisterWorkerServiceServer(s grpc.ServiceRegistrar, impl WorkerService) {
	s.RegisterService(&serviceDesc, impl)
}
