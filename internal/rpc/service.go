package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "jobs.v1.JobsService"

// Full method names, as seen by interceptors in grpc.UnaryServerInfo.
const (
	MethodListLane        = "/" + ServiceName + "/ListLane"
	MethodGetJob          = "/" + ServiceName + "/GetJob"
	MethodClaimJob        = "/" + ServiceName + "/ClaimJob"
	MethodRejectJob       = "/" + ServiceName + "/RejectJob"
	MethodCompleteJob     = "/" + ServiceName + "/CompleteJob"
	MethodIngestJob       = "/" + ServiceName + "/IngestJob"
	MethodGetEvents       = "/" + ServiceName + "/GetEvents"
	MethodCreateSession   = "/" + ServiceName + "/CreateSession"
	MethodActivateSession = "/" + ServiceName + "/ActivateSession"
	MethodGetSession      = "/" + ServiceName + "/GetSession"
	MethodLogout          = "/" + ServiceName + "/Logout"
	MethodGetRoster       = "/" + ServiceName + "/GetRoster"
	MethodHealth          = "/" + ServiceName + "/Health"
)

// JobsServiceServer is the server API for JobsService.
type JobsServiceServer interface {
	ListLane(context.Context, *ListLaneRequest) (*ListLaneResponse, error)
	GetJob(context.Context, *GetJobRequest) (*GetJobResponse, error)
	ClaimJob(context.Context, *ClaimJobRequest) (*JobResponse, error)
	RejectJob(context.Context, *RejectJobRequest) (*RejectJobResponse, error)
	CompleteJob(context.Context, *CompleteJobRequest) (*JobResponse, error)
	IngestJob(context.Context, *IngestJobRequest) (*JobResponse, error)
	GetEvents(context.Context, *GetEventsRequest) (*GetEventsResponse, error)
	CreateSession(context.Context, *CreateSessionRequest) (*SessionResponse, error)
	ActivateSession(context.Context, *ActivateSessionRequest) (*SessionResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*SessionResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	GetRoster(context.Context, *GetRosterRequest) (*GetRosterResponse, error)
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
}

// UnimplementedJobsServiceServer answers every method with codes.Unimplemented.
// Embed it to stay forward compatible with new methods.
type UnimplementedJobsServiceServer struct{}

func (UnimplementedJobsServiceServer) ListLane(context.Context, *ListLaneRequest) (*ListLaneResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListLane not implemented")
}
func (UnimplementedJobsServiceServer) GetJob(context.Context, *GetJobRequest) (*GetJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetJob not implemented")
}
func (UnimplementedJobsServiceServer) ClaimJob(context.Context, *ClaimJobRequest) (*JobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClaimJob not implemented")
}
func (UnimplementedJobsServiceServer) RejectJob(context.Context, *RejectJobRequest) (*RejectJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RejectJob not implemented")
}
func (UnimplementedJobsServiceServer) CompleteJob(context.Context, *CompleteJobRequest) (*JobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CompleteJob not implemented")
}
func (UnimplementedJobsServiceServer) IngestJob(context.Context, *IngestJobRequest) (*JobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IngestJob not implemented")
}
func (UnimplementedJobsServiceServer) GetEvents(context.Context, *GetEventsRequest) (*GetEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetEvents not implemented")
}
func (UnimplementedJobsServiceServer) CreateSession(context.Context, *CreateSessionRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSession not implemented")
}
func (UnimplementedJobsServiceServer) ActivateSession(context.Context, *ActivateSessionRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ActivateSession not implemented")
}
func (UnimplementedJobsServiceServer) GetSession(context.Context, *GetSessionRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
}
func (UnimplementedJobsServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedJobsServiceServer) GetRoster(context.Context, *GetRosterRequest) (*GetRosterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRoster not implemented")
}
func (UnimplementedJobsServiceServer) Health(context.Context, *HealthRequest) (*HealthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

// unary adapts a typed server method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(JobsServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(JobsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(JobsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// JobsServiceDesc is the grpc.ServiceDesc for JobsService.
var JobsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListLane", Handler: unary(MethodListLane, JobsServiceServer.ListLane)},
		{MethodName: "GetJob", Handler: unary(MethodGetJob, JobsServiceServer.GetJob)},
		{MethodName: "ClaimJob", Handler: unary(MethodClaimJob, JobsServiceServer.ClaimJob)},
		{MethodName: "RejectJob", Handler: unary(MethodRejectJob, JobsServiceServer.RejectJob)},
		{MethodName: "CompleteJob", Handler: unary(MethodCompleteJob, JobsServiceServer.CompleteJob)},
		{MethodName: "IngestJob", Handler: unary(MethodIngestJob, JobsServiceServer.IngestJob)},
		{MethodName: "GetEvents", Handler: unary(MethodGetEvents, JobsServiceServer.GetEvents)},
		{MethodName: "CreateSession", Handler: unary(MethodCreateSession, JobsServiceServer.CreateSession)},
		{MethodName: "ActivateSession", Handler: unary(MethodActivateSession, JobsServiceServer.ActivateSession)},
		{MethodName: "GetSession", Handler: unary(MethodGetSession, JobsServiceServer.GetSession)},
		{MethodName: "Logout", Handler: unary(MethodLogout, JobsServiceServer.Logout)},
		{MethodName: "GetRoster", Handler: unary(MethodGetRoster, JobsServiceServer.GetRoster)},
		{MethodName: "Health", Handler: unary(MethodHealth, JobsServiceServer.Health)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobs/v1/jobs.json",
}

// RegisterJobsServiceServer registers srv on s.
func RegisterJobsServiceServer(s grpc.ServiceRegistrar, srv JobsServiceServer) {
	s.RegisterService(&JobsServiceDesc, srv)
}

// JobsServiceClient is the client API for JobsService.
type JobsServiceClient interface {
	ListLane(ctx context.Context, in *ListLaneRequest, opts ...grpc.CallOption) (*ListLaneResponse, error)
	GetJob(ctx context.Context, in *GetJobRequest, opts ...grpc.CallOption) (*GetJobResponse, error)
	ClaimJob(ctx context.Context, in *ClaimJobRequest, opts ...grpc.CallOption) (*JobResponse, error)
	RejectJob(ctx context.Context, in *RejectJobRequest, opts ...grpc.CallOption) (*RejectJobResponse, error)
	CompleteJob(ctx context.Context, in *CompleteJobRequest, opts ...grpc.CallOption) (*JobResponse, error)
	IngestJob(ctx context.Context, in *IngestJobRequest, opts ...grpc.CallOption) (*JobResponse, error)
	GetEvents(ctx context.Context, in *GetEventsRequest, opts ...grpc.CallOption) (*GetEventsResponse, error)
	CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	ActivateSession(ctx context.Context, in *ActivateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	GetRoster(ctx context.Context, in *GetRosterRequest, opts ...grpc.CallOption) (*GetRosterResponse, error)
	Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
}

type jobsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewJobsServiceClient returns a client that sends every call with the JSON codec.
func NewJobsServiceClient(cc grpc.ClientConnInterface) JobsServiceClient {
	return &jobsServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *jobsServiceClient) ListLane(ctx context.Context, in *ListLaneRequest, opts ...grpc.CallOption) (*ListLaneResponse, error) {
	return invoke[ListLaneResponse](ctx, c.cc, MethodListLane, in, opts)
}

func (c *jobsServiceClient) GetJob(ctx context.Context, in *GetJobRequest, opts ...grpc.CallOption) (*GetJobResponse, error) {
	return invoke[GetJobResponse](ctx, c.cc, MethodGetJob, in, opts)
}

func (c *jobsServiceClient) ClaimJob(ctx context.Context, in *ClaimJobRequest, opts ...grpc.CallOption) (*JobResponse, error) {
	return invoke[JobResponse](ctx, c.cc, MethodClaimJob, in, opts)
}

func (c *jobsServiceClient) RejectJob(ctx context.Context, in *RejectJobRequest, opts ...grpc.CallOption) (*RejectJobResponse, error) {
	return invoke[RejectJobResponse](ctx, c.cc, MethodRejectJob, in, opts)
}

func (c *jobsServiceClient) CompleteJob(ctx context.Context, in *CompleteJobRequest, opts ...grpc.CallOption) (*JobResponse, error) {
	return invoke[JobResponse](ctx, c.cc, MethodCompleteJob, in, opts)
}

func (c *jobsServiceClient) IngestJob(ctx context.Context, in *IngestJobRequest, opts ...grpc.CallOption) (*JobResponse, error) {
	return invoke[JobResponse](ctx, c.cc, MethodIngestJob, in, opts)
}

func (c *jobsServiceClient) GetEvents(ctx context.Context, in *GetEventsRequest, opts ...grpc.CallOption) (*GetEventsResponse, error) {
	return invoke[GetEventsResponse](ctx, c.cc, MethodGetEvents, in, opts)
}

func (c *jobsServiceClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodCreateSession, in, opts)
}

func (c *jobsServiceClient) ActivateSession(ctx context.Context, in *ActivateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodActivateSession, in, opts)
}

func (c *jobsServiceClient) GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodGetSession, in, opts)
}

func (c *jobsServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts)
}

func (c *jobsServiceClient) GetRoster(ctx context.Context, in *GetRosterRequest, opts ...grpc.CallOption) (*GetRosterResponse, error) {
	return invoke[GetRosterResponse](ctx, c.cc, MethodGetRoster, in, opts)
}

func (c *jobsServiceClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	return invoke[HealthResponse](ctx, c.cc, MethodHealth, in, opts)
}
