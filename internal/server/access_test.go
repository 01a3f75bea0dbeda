package server

import (
	"context"
	"testing"

	"github.com/alfredjeanlab/jobline/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

func TestGateInterceptor(t *testing.T) {
	s, _ := newGatedServer(t, &stubVerifier{expired: map[string]bool{"lapsed": true}})
	granted := settledSession(t, s, "paid")
	expired := settledSession(t, s, "lapsed")
	interceptor := s.GateInterceptor()

	handler := func(_ context.Context, _ any) (any, error) { return "ok", nil }
	withSession := func(id string) context.Context {
		if id == "" {
			return context.Background()
		}
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs(sessionMetadataKey, id))
	}

	for _, tc := range []struct {
		name    string
		method  string
		session string
		code    codes.Code
	}{
		{"ungated method", rpc.MethodIngestJob, "", codes.OK},
		{"health", rpc.MethodHealth, "", codes.OK},
		{"missing session", rpc.MethodListLane, "", codes.Unauthenticated},
		{"unknown session", rpc.MethodClaimJob, "ses-nope", codes.Unauthenticated},
		{"expired", rpc.MethodCompleteJob, expired.ID, codes.PermissionDenied},
		{"granted", rpc.MethodRejectJob, granted.ID, codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			info := &grpc.UnaryServerInfo{FullMethod: tc.method}
			resp, err := interceptor(withSession(tc.session), nil, info, handler)
			if tc.code == codes.OK {
				if err != nil || resp != "ok" {
					t.Fatalf("expected handler to run, got resp=%v err=%v", resp, err)
				}
				return
			}
			requireCode(t, err, tc.code)
		})
	}
}

func TestGateInterceptor_Disabled(t *testing.T) {
	s, _, _ := newTestServer(t)
	info := &grpc.UnaryServerInfo{FullMethod: rpc.MethodListLane}
	_, err := s.GateInterceptor()(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("expected open access with the gate disabled, got %v", err)
	}
}

func TestGateInterceptor_MovesActAsSessionIdentity(t *testing.T) {
	s, _ := newGatedServer(t, &stubVerifier{}, sampleJob("1", "Rose"))
	alice := settledSession(t, s, "alice")
	interceptor := s.GateInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: rpc.MethodClaimJob}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(sessionMetadataKey, alice.ID))
	claim := func(ctx context.Context, req any) (any, error) {
		return s.ClaimJob(ctx, req.(*rpc.ClaimJobRequest))
	}

	_, err := interceptor(ctx, &rpc.ClaimJobRequest{ID: "1", ClaimedBy: "mallory"}, info, claim)
	requireCode(t, err, codes.PermissionDenied)

	resp, err := interceptor(ctx, &rpc.ClaimJobRequest{ID: "1"}, info, claim)
	if err != nil {
		t.Fatalf("claim as session: %v", err)
	}
	if got := resp.(*rpc.JobResponse).Job.ClaimedBy; got != "alice" {
		t.Fatalf("claimed_by = %q, want alice", got)
	}
}

func TestActorFor(t *testing.T) {
	bound := withIdentity(context.Background(), "alice")
	for _, tc := range []struct {
		name    string
		ctx     context.Context
		claimed string
		want    string
		wantErr bool
	}{
		{"no gate keeps claimed", context.Background(), "w1", "w1", false},
		{"no gate, no actor", context.Background(), "", "", false},
		{"session fills empty", bound, "", "alice", false},
		{"session matches", bound, "alice", "alice", false},
		{"session mismatch", bound, "mallory", "", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := actorFor(tc.ctx, tc.claimed)
			if (err != nil) != tc.wantErr || got != tc.want {
				t.Fatalf("actorFor = %q, %v; want %q (err %v)", got, err, tc.want, tc.wantErr)
			}
		})
	}
}
