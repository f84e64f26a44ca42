package api

import (
	"context"

	"google.golang.org/grpc"
)

// ConnectionClient is the client API for the control plane.
type ConnectionClient interface {
	GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatusResponse, error)
	GetStats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatsResponse, error)
	Connect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	Disconnect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	Reconnect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	Join(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error)
	Leave(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error)
	StartTyping(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error)
	StopTyping(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*Ack, error)
	IsOnline(ctx context.Context, in *IsOnlineRequest, opts ...grpc.CallOption) (*IsOnlineResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*Ack, error)
	Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error)
}

type connectionClient struct {
	cc grpc.ClientConnInterface
}

// NewConnectionClient returns a client that encodes every call with the JSON codec.
func NewConnectionClient(cc grpc.ClientConnInterface) ConnectionClient {
	return &connectionClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *connectionClient) GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodGetStatus, in, opts)
}

func (c *connectionClient) GetStats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, MethodGetStats, in, opts)
}

func (c *connectionClient) Connect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodConnect, in, opts)
}

func (c *connectionClient) Disconnect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodDisconnect, in, opts)
}

func (c *connectionClient) Reconnect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodReconnect, in, opts)
}

func (c *connectionClient) Join(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodJoin, in, opts)
}

func (c *connectionClient) Leave(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodLeave, in, opts)
}

func (c *connectionClient) StartTyping(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodStartTyping, in, opts)
}

func (c *connectionClient) StopTyping(ctx context.Context, in *ConversationRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodStopTyping, in, opts)
}

func (c *connectionClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodMarkRead, in, opts)
}

func (c *connectionClient) IsOnline(ctx context.Context, in *IsOnlineRequest, opts ...grpc.CallOption) (*IsOnlineResponse, error) {
	return invoke[IsOnlineResponse](ctx, c.cc, MethodIsOnline, in, opts)
}

func (c *connectionClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodLogin, in, opts)
}

func (c *connectionClient) Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, MethodLogout, in, opts)
}

func (c *connectionClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, MethodListEvents, in, opts)
}
