package server

import (
	"github.com/alfredjeanlab/jobline/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the JobsService and reflection, and returns the server ready to serve.
func NewGRPCServer(jobsServer *JobsServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
			jobsServer.GateInterceptor(),
		),
	)

	rpc.RegisterJobsServiceServer(srv, jobsServer)
	reflection.Register(srv)

	return srv
}
