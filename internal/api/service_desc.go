package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified control-plane service name.
const ServiceName = "rtlink.v1.ConnectionService"

// Method names, relative to ServiceName.
const (
	MethodGetStatus   = "GetStatus"
	MethodGetStats    = "GetStats"
	MethodConnect     = "Connect"
	MethodDisconnect  = "Disconnect"
	MethodReconnect   = "Reconnect"
	MethodJoin        = "Join"
	MethodLeave       = "Leave"
	MethodStartTyping = "StartTyping"
	MethodStopTyping  = "StopTyping"
	MethodMarkRead    = "MarkRead"
	MethodIsOnline    = "IsOnline"
	MethodLogin       = "Login"
	MethodLogout      = "Logout"
	MethodListEvents  = "ListEvents"
)

// FullMethod returns the gRPC path of a method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ConnectionServer is the server API for the control plane.
type ConnectionServer interface {
	GetStatus(context.Context, *Empty) (*StatusResponse, error)
	GetStats(context.Context, *Empty) (*StatsResponse, error)
	Connect(context.Context, *Empty) (*Ack, error)
	Disconnect(context.Context, *Empty) (*Ack, error)
	Reconnect(context.Context, *Empty) (*Ack, error)
	Join(context.Context, *ConversationRequest) (*Ack, error)
	Leave(context.Context, *ConversationRequest) (*Ack, error)
	StartTyping(context.Context, *ConversationRequest) (*Ack, error)
	StopTyping(context.Context, *ConversationRequest) (*Ack, error)
	MarkRead(context.Context, *MarkReadRequest) (*Ack, error)
	IsOnline(context.Context, *IsOnlineRequest) (*IsOnlineResponse, error)
	Login(context.Context, *LoginRequest) (*Ack, error)
	Logout(context.Context, *Empty) (*Ack, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
}

// RegisterConnectionServer registers srv on s.
func RegisterConnectionServer(s grpc.ServiceRegistrar, srv ConnectionServer) {
	s.RegisterService(&ConnectionServiceDesc, srv)
}

// ConnectionServiceDesc describes the control plane for grpc.Server.
var ConnectionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConnectionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetStatus, ConnectionServer.GetStatus),
		unary(MethodGetStats, ConnectionServer.GetStats),
		unary(MethodConnect, ConnectionServer.Connect),
		unary(MethodDisconnect, ConnectionServer.Disconnect),
		unary(MethodReconnect, ConnectionServer.Reconnect),
		unary(MethodJoin, ConnectionServer.Join),
		unary(MethodLeave, ConnectionServer.Leave),
		unary(MethodStartTyping, ConnectionServer.StartTyping),
		unary(MethodStopTyping, ConnectionServer.StopTyping),
		unary(MethodMarkRead, ConnectionServer.MarkRead),
		unary(MethodIsOnline, ConnectionServer.IsOnline),
		unary(MethodLogin, ConnectionServer.Login),
		unary(MethodLogout, ConnectionServer.Logout),
		unary(MethodListEvents, ConnectionServer.ListEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rtlink/v1/connection.json",
}

// unary builds the method handler that generated code would otherwise provide.
func unary[Req, Resp any](name string, call func(ConnectionServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ConnectionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ConnectionServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
