package alarm

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarmclock.v1.AlarmService"

// Full method names of the AlarmService.
const (
	CreateAlarmMethod   = "/" + ServiceName + "/CreateAlarm"
	StopAlarmMethod     = "/" + ServiceName + "/StopAlarm"
	StopAllAlarmsMethod = "/" + ServiceName + "/StopAllAlarms"
	CancelAlarmMethod   = "/" + ServiceName + "/CancelAlarm"
	RemoveAlarmMethod   = "/" + ServiceName + "/RemoveAlarm"
	ListAlarmsMethod    = "/" + ServiceName + "/ListAlarms"
	ListActiveMethod    = "/" + ServiceName + "/ListActive"
	PreviewSoundMethod  = "/" + ServiceName + "/PreviewSound"
	StopPreviewMethod   = "/" + ServiceName + "/StopPreview"
	ListSoundsMethod    = "/" + ServiceName + "/ListSounds"
)

// AlarmServiceServer is the server API of the AlarmService.
type AlarmServiceServer interface {
	CreateAlarm(ctx context.Context, req *CreateAlarmRequest) (*CreateAlarmResponse, error)
	StopAlarm(ctx context.Context, req *AlarmRequest) (*StopAlarmResponse, error)
	StopAllAlarms(ctx context.Context, req *StopAllAlarmsRequest) (*StopAllAlarmsResponse, error)
	CancelAlarm(ctx context.Context, req *AlarmRequest) (*CancelAlarmResponse, error)
	RemoveAlarm(ctx context.Context, req *AlarmRequest) (*RemoveAlarmResponse, error)
	ListAlarms(ctx context.Context, req *ListAlarmsRequest) (*ListAlarmsResponse, error)
	ListActive(ctx context.Context, req *ListActiveRequest) (*ListActiveResponse, error)
	PreviewSound(ctx context.Context, req *PreviewSoundRequest) (*PreviewSoundResponse, error)
	StopPreview(ctx context.Context, req *StopPreviewRequest) (*StopPreviewResponse, error)
	ListSounds(ctx context.Context, req *ListSoundsRequest) (*ListSoundsResponse, error)
}

// AlarmServiceClient is the client API of the AlarmService.
type AlarmServiceClient interface {
	CreateAlarm(ctx context.Context, req *CreateAlarmRequest, opts ...grpc.CallOption) (*CreateAlarmResponse, error)
	StopAlarm(ctx context.Context, req *AlarmRequest, opts ...grpc.CallOption) (*StopAlarmResponse, error)
	StopAllAlarms(
		ctx context.Context,
		req *StopAllAlarmsRequest,
		opts ...grpc.CallOption,
	) (*StopAllAlarmsResponse, error)
	CancelAlarm(ctx context.Context, req *AlarmRequest, opts ...grpc.CallOption) (*CancelAlarmResponse, error)
	RemoveAlarm(ctx context.Context, req *AlarmRequest, opts ...grpc.CallOption) (*RemoveAlarmResponse, error)
	ListAlarms(ctx context.Context, req *ListAlarmsRequest, opts ...grpc.CallOption) (*ListAlarmsResponse, error)
	ListActive(ctx context.Context, req *ListActiveRequest, opts ...grpc.CallOption) (*ListActiveResponse, error)
	PreviewSound(
		ctx context.Context,
		req *PreviewSoundRequest,
		opts ...grpc.CallOption,
	) (*PreviewSoundResponse, error)
	StopPreview(ctx context.Context, req *StopPreviewRequest, opts ...grpc.CallOption) (*StopPreviewResponse, error)
	ListSounds(ctx context.Context, req *ListSoundsRequest, opts ...grpc.CallOption) (*ListSoundsResponse, error)
}

// ServiceDesc describes the AlarmService for grpc.Server registration.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateAlarm", Handler: unaryHandler(CreateAlarmMethod, AlarmServiceServer.CreateAlarm)},
		{MethodName: "StopAlarm", Handler: unaryHandler(StopAlarmMethod, AlarmServiceServer.StopAlarm)},
		{MethodName: "StopAllAlarms", Handler: unaryHandler(StopAllAlarmsMethod, AlarmServiceServer.StopAllAlarms)},
		{MethodName: "CancelAlarm", Handler: unaryHandler(CancelAlarmMethod, AlarmServiceServer.CancelAlarm)},
		{MethodName: "RemoveAlarm", Handler: unaryHandler(RemoveAlarmMethod, AlarmServiceServer.RemoveAlarm)},
		{MethodName: "ListAlarms", Handler: unaryHandler(ListAlarmsMethod, AlarmServiceServer.ListAlarms)},
		{MethodName: "ListActive", Handler: unaryHandler(ListActiveMethod, AlarmServiceServer.ListActive)},
		{MethodName: "PreviewSound", Handler: unaryHandler(PreviewSoundMethod, AlarmServiceServer.PreviewSound)},
		{MethodName: "StopPreview", Handler: unaryHandler(StopPreviewMethod, AlarmServiceServer.StopPreview)},
		{MethodName: "ListSounds", Handler: unaryHandler(ListSoundsMethod, AlarmServiceServer.ListSounds)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarmclock/v1",
}

// RegisterAlarmServiceServer registers the implementation with a gRPC server.
func RegisterAlarmServiceServer(s grpc.ServiceRegistrar, srv AlarmServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler.
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(AlarmServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		impl := srv.(AlarmServiceServer) //nolint:forcetypeassert // Guaranteed by HandlerType.

		if interceptor == nil {
			return call(impl, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(impl, ctx, req.(*Req)) //nolint:forcetypeassert // Decoded above.
		}

		return interceptor(ctx, in, info, handler)
	}
}

// alarmServiceClient invokes the AlarmService over a client connection.
type alarmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmServiceClient creates a client stub. Calls use the JSON codec.
func NewAlarmServiceClient(cc grpc.ClientConnInterface) AlarmServiceClient {
	return &alarmServiceClient{cc: cc}
}

func (c *alarmServiceClient) CreateAlarm(
	ctx context.Context,
	req *CreateAlarmRequest,
	opts ...grpc.CallOption,
) (*CreateAlarmResponse, error) {
	return invoke[CreateAlarmResponse](ctx, c.cc, CreateAlarmMethod, req, opts)
}

func (c *alarmServiceClient) StopAlarm(
	ctx context.Context,
	req *AlarmRequest,
	opts ...grpc.CallOption,
) (*StopAlarmResponse, error) {
	return invoke[StopAlarmResponse](ctx, c.cc, StopAlarmMethod, req, opts)
}

func (c *alarmServiceClient) StopAllAlarms(
	ctx context.Context,
	req *StopAllAlarmsRequest,
	opts ...grpc.CallOption,
) (*StopAllAlarmsResponse, error) {
	return invoke[StopAllAlarmsResponse](ctx, c.cc, StopAllAlarmsMethod, req, opts)
}

func (c *alarmServiceClient) CancelAlarm(
	ctx context.Context,
	req *AlarmRequest,
	opts ...grpc.CallOption,
) (*CancelAlarmResponse, error) {
	return invoke[CancelAlarmResponse](ctx, c.cc, CancelAlarmMethod, req, opts)
}

func (c *alarmServiceClient) RemoveAlarm(
	ctx context.Context,
	req *AlarmRequest,
	opts ...grpc.CallOption,
) (*RemoveAlarmResponse, error) {
	return invoke[RemoveAlarmResponse](ctx, c.cc, RemoveAlarmMethod, req, opts)
}

func (c *alarmServiceClient) ListAlarms(
	ctx context.Context,
	req *ListAlarmsRequest,
	opts ...grpc.CallOption,
) (*ListAlarmsResponse, error) {
	return invoke[ListAlarmsResponse](ctx, c.cc, ListAlarmsMethod, req, opts)
}

func (c *alarmServiceClient) ListActive(
	ctx context.Context,
	req *ListActiveRequest,
	opts ...grpc.CallOption,
) (*ListActiveResponse, error) {
	return invoke[ListActiveResponse](ctx, c.cc, ListActiveMethod, req, opts)
}

func (c *alarmServiceClient) PreviewSound(
	ctx context.Context,
	req *PreviewSoundRequest,
	opts ...grpc.CallOption,
) (*PreviewSoundResponse, error) {
	return invoke[PreviewSoundResponse](ctx, c.cc, PreviewSoundMethod, req, opts)
}

func (c *alarmServiceClient) StopPreview(
	ctx context.Context,
	req *StopPreviewRequest,
	opts ...grpc.CallOption,
) (*StopPreviewResponse, error) {
	return invoke[StopPreviewResponse](ctx, c.cc, StopPreviewMethod, req, opts)
}

func (c *alarmServiceClient) ListSounds(
	ctx context.Context,
	req *ListSoundsRequest,
	opts ...grpc.CallOption,
) (*ListSoundsResponse, error) {
	return invoke[ListSoundsResponse](ctx, c.cc, ListSoundsMethod, req, opts)
}

// invoke performs a unary call with the JSON content subtype.
func invoke[Resp any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	req any,
	opts []grpc.CallOption,
) (*Resp, error) {
	out := new(Resp)

	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)

	if err := cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
