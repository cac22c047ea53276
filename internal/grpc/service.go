package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified name of the session service
const ServiceName = "workout.v1.SessionService"

// SessionServiceServer is the server API of the session service
type SessionServiceServer interface {
	StartSession(context.Context, *StartSessionRequest) (*StartSessionResponse, error)
	PushSamples(context.Context, *PushSamplesRequest) (*PushSamplesResponse, error)
	GetSnapshot(context.Context, *GetSnapshotRequest) (*GetSnapshotResponse, error)
	GetPath(context.Context, *GetPathRequest) (*GetPathResponse, error)
	FinishSession(context.Context, *FinishSessionRequest) (*FinishSessionResponse, error)
	CancelSession(context.Context, *CancelSessionRequest) (*CancelSessionResponse, error)
	GetJobStatus(context.Context, *GetJobStatusRequest) (*GetJobStatusResponse, error)
	ListJobs(context.Context, *ListJobsRequest) (*ListJobsResponse, error)
	ListWorkouts(context.Context, *ListWorkoutsRequest) (*ListWorkoutsResponse, error)
	GetWorkout(context.Context, *GetWorkoutRequest) (*GetWorkoutResponse, error)
	DeleteWorkout(context.Context, *DeleteWorkoutRequest) (*DeleteWorkoutResponse, error)
	GetTotals(context.Context, *GetTotalsRequest) (*GetTotalsResponse, error)
}

// SessionServiceDesc describes the session service for grpc.Server
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("StartSession", SessionServiceServer.StartSession),
		unary("PushSamples", SessionServiceServer.PushSamples),
		unary("GetSnapshot", SessionServiceServer.GetSnapshot),
		unary("GetPath", SessionServiceServer.GetPath),
		unary("FinishSession", SessionServiceServer.FinishSession),
		unary("CancelSession", SessionServiceServer.CancelSession),
		unary("GetJobStatus", SessionServiceServer.GetJobStatus),
		unary("ListJobs", SessionServiceServer.ListJobs),
		unary("ListWorkouts", SessionServiceServer.ListWorkouts),
		unary("GetWorkout", SessionServiceServer.GetWorkout),
		unary("DeleteWorkout", SessionServiceServer.DeleteWorkout),
		unary("GetTotals", SessionServiceServer.GetTotals),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterSessionServiceServer registers srv with s
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(SessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SessionServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SessionServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SessionServiceClient calls the session service over a JSON-coded
// connection
type SessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient creates a client on cc
func NewSessionServiceClient(cc grpc.ClientConnInterface) *SessionServiceClient {
	return &SessionServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SessionServiceClient) StartSession(ctx context.Context, in *StartSessionRequest, opts ...grpc.CallOption) (*StartSessionResponse, error) {
	return invoke[StartSessionResponse](ctx, c.cc, "StartSession", in, opts)
}

func (c *SessionServiceClient) PushSamples(ctx context.Context, in *PushSamplesRequest, opts ...grpc.CallOption) (*PushSamplesResponse, error) {
	return invoke[PushSamplesResponse](ctx, c.cc, "PushSamples", in, opts)
}

func (c *SessionServiceClient) GetSnapshot(ctx context.Context, in *GetSnapshotRequest, opts ...grpc.CallOption) (*GetSnapshotResponse, error) {
	return invoke[GetSnapshotResponse](ctx, c.cc, "GetSnapshot", in, opts)
}

func (c *SessionServiceClient) GetPath(ctx context.Context, in *GetPathRequest, opts ...grpc.CallOption) (*GetPathResponse, error) {
	return invoke[GetPathResponse](ctx, c.cc, "GetPath", in, opts)
}

func (c *SessionServiceClient) FinishSession(ctx context.Context, in *FinishSessionRequest, opts ...grpc.CallOption) (*FinishSessionResponse, error) {
	return invoke[FinishSessionResponse](ctx, c.cc, "FinishSession", in, opts)
}

func (c *SessionServiceClient) CancelSession(ctx context.Context, in *CancelSessionRequest, opts ...grpc.CallOption) (*CancelSessionResponse, error) {
	return invoke[CancelSessionResponse](ctx, c.cc, "CancelSession", in, opts)
}

func (c *SessionServiceClient) GetJobStatus(ctx context.Context, in *GetJobStatusRequest, opts ...grpc.CallOption) (*GetJobStatusResponse, error) {
	return invoke[GetJobStatusResponse](ctx, c.cc, "GetJobStatus", in, opts)
}

func (c *SessionServiceClient) ListJobs(ctx context.Context, in *ListJobsRequest, opts ...grpc.CallOption) (*ListJobsResponse, error) {
	return invoke[ListJobsResponse](ctx, c.cc, "ListJobs", in, opts)
}

func (c *SessionServiceClient) ListWorkouts(ctx context.Context, in *ListWorkoutsRequest, opts ...grpc.CallOption) (*ListWorkoutsResponse, error) {
	return invoke[ListWorkoutsResponse](ctx, c.cc, "ListWorkouts", in, opts)
}

func (c *SessionServiceClient) GetWorkout(ctx context.Context, in *GetWorkoutRequest, opts ...grpc.CallOption) (*GetWorkoutResponse, error) {
	return invoke[GetWorkoutResponse](ctx, c.cc, "GetWorkout", in, opts)
}

func (c *SessionServiceClient) DeleteWorkout(ctx context.Context, in *DeleteWorkoutRequest, opts ...grpc.CallOption) (*DeleteWorkoutResponse, error) {
	return invoke[DeleteWorkoutResponse](ctx, c.cc, "DeleteWorkout", in, opts)
}

func (c *SessionServiceClient) GetTotals(ctx context.Context, in *GetTotalsRequest, opts ...grpc.CallOption) (*GetTotalsResponse, error) {
	return invoke[GetTotalsResponse](ctx, c.cc, "GetTotals", in, opts)
}
