package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/presence"
	"github.com/alfredjeanlab/jobline/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// GRPCClient implements JobsClient using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client rpc.JobsServiceClient
	token  string

	mu        sync.RWMutex
	sessionID string
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a Bearer token on every call.
func NewGRPCClient(addr, token string) (*GRPCClient, error) {
	c := &GRPCClient{token: token}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.attachMetadata),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	c.conn = conn
	c.client = rpc.NewJobsServiceClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// SetSession sets the session id sent with every call.
func (c *GRPCClient) SetSession(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// attachMetadata adds the bearer token and session id to outgoing calls.
func (c *GRPCClient) attachMetadata(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	c.mu.RLock()
	sessionID := c.sessionID
	c.mu.RUnlock()
	if sessionID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-session-id", sessionID)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// --- Lanes ---

func (c *GRPCClient) ListLane(ctx context.Context, lane string) ([]*model.Job, error) {
	resp, err := c.client.ListLane(ctx, &rpc.ListLaneRequest{Lane: lane})
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *GRPCClient) GetJob(ctx context.Context, id string) (*model.LaneJob, error) {
	resp, err := c.client.GetJob(ctx, &rpc.GetJobRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return &model.LaneJob{Lane: model.Lane(resp.Lane), Job: resp.Job}, nil
}

func (c *GRPCClient) ClaimJob(ctx context.Context, id, actor string) (*model.Job, error) {
	resp, err := c.client.ClaimJob(ctx, &rpc.ClaimJobRequest{ID: id, ClaimedBy: actor})
	if err != nil {
		return nil, err
	}
	return resp.Job, nil
}

func (c *GRPCClient) RejectJob(ctx context.Context, id, actor string) error {
	_, err := c.client.RejectJob(ctx, &rpc.RejectJobRequest{ID: id, RejectedBy: actor})
	return err
}

func (c *GRPCClient) CompleteJob(ctx context.Context, id string, completedAt *time.Time, actor string) (*model.Job, error) {
	resp, err := c.client.CompleteJob(ctx, &rpc.CompleteJobRequest{ID: id, CompletedAt: completedAt, CompletedBy: actor})
	if err != nil {
		return nil, err
	}
	return resp.Job, nil
}

func (c *GRPCClient) IngestJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	resp, err := c.client.IngestJob(ctx, &rpc.IngestJobRequest{Job: job})
	if err != nil {
		return nil, err
	}
	return resp.Job, nil
}

func (c *GRPCClient) GetEvents(ctx context.Context, jobID string) ([]*model.Event, error) {
	resp, err := c.client.GetEvents(ctx, &rpc.GetEventsRequest{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Sessions ---

func (c *GRPCClient) CreateSession(ctx context.Context, identity string) (*model.Session, error) {
	resp, err := c.client.CreateSession(ctx, &rpc.CreateSessionRequest{Identity: identity})
	if err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (c *GRPCClient) ActivateSession(ctx context.Context, sessionID, identity string) (*model.Session, error) {
	resp, err := c.client.ActivateSession(ctx, &rpc.ActivateSessionRequest{SessionID: sessionID, Identity: identity})
	if err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (c *GRPCClient) GetSession(ctx context.Context, sessionID string, wait time.Duration) (*model.Session, error) {
	resp, err := c.client.GetSession(ctx, &rpc.GetSessionRequest{SessionID: sessionID, WaitMillis: wait.Milliseconds()})
	if err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (c *GRPCClient) Logout(ctx context.Context, sessionID string) error {
	_, err := c.client.Logout(ctx, &rpc.LogoutRequest{SessionID: sessionID})
	return err
}

// --- Workers ---

func (c *GRPCClient) Roster(ctx context.Context, staleThreshold time.Duration) ([]presence.Entry, error) {
	resp, err := c.client.GetRoster(ctx, &rpc.GetRosterRequest{StaleThresholdSecs: int64(staleThreshold.Seconds())})
	if err != nil {
		return nil, err
	}
	return resp.Workers, nil
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.client.Health(ctx, &rpc.HealthRequest{})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}
