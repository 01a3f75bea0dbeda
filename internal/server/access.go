package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/jobline/internal/gate"
	"github.com/alfredjeanlab/jobline/internal/idgen"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// SessionHeader carries the session id on lane requests. gRPC clients send
// it as the lowercase metadata key.
const SessionHeader = "X-Session-ID"

const sessionMetadataKey = "x-session-id"

// gatedMethods are the RPCs that require a Granted session.
var gatedMethods = map[string]bool{
	rpc.MethodListLane:    true,
	rpc.MethodGetJob:      true,
	rpc.MethodClaimJob:    true,
	rpc.MethodRejectJob:   true,
	rpc.MethodCompleteJob: true,
	rpc.MethodGetEvents:   true,
}

// authorizeSession checks that sessionID names a Granted session and returns
// its snapshot. It always succeeds with a zero Session when the gate is
// disabled.
func (s *JobsServer) authorizeSession(sessionID string) (model.Session, error) {
	if s.sessions == nil {
		return model.Session{}, nil
	}
	if sessionID == "" {
		return model.Session{}, errSessionRequired
	}
	if !idgen.Session.Valid(sessionID) {
		return model.Session{}, errUnknownSession
	}
	g, err := s.sessions.Get(sessionID)
	if errors.Is(err, gate.ErrNoSession) {
		return model.Session{}, errUnknownSession
	}
	if err != nil {
		return model.Session{}, err
	}
	snap := g.Snapshot()
	if !snap.State.Permits() {
		return snap, &accessError{session: snap}
	}
	return snap, nil
}

type identityKey struct{}

// withIdentity records the verified identity of the session that authorized
// the request.
func withIdentity(ctx context.Context, identity string) context.Context {
	if identity == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// actorFor returns the actor to record for a lane move. Requests authorized
// by a session act as that session's identity; claimed may be empty or must
// match it. Without a gate the claimed actor is used as given.
func actorFor(ctx context.Context, claimed string) (string, error) {
	identity, _ := ctx.Value(identityKey{}).(string)
	if identity == "" {
		return claimed, nil
	}
	if claimed != "" && claimed != identity {
		return "", &actorMismatchError{identity: identity, claimed: claimed}
	}
	return identity, nil
}

// GateInterceptor returns a gRPC unary interceptor that rejects gated RPCs
// unless the "x-session-id" metadata names a Granted session.
func (s *JobsServer) GateInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !gatedMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		var sessionID string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(sessionMetadataKey); len(vals) > 0 {
				sessionID = vals[0]
			}
		}
		sess, err := s.authorizeSession(sessionID)
		if err != nil {
			return nil, storeError(err, "authorize session")
		}
		return handler(withIdentity(ctx, sess.Identity), req)
	}
}

// gated wraps an HTTP handler so it only runs for a Granted session named by
// the X-Session-ID header.
func (s *JobsServer) gated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.authorizeSession(r.Header.Get(SessionHeader))
		if err != nil {
			writeStoreError(w, err, "authorize session")
			return
		}
		next(w, r.WithContext(withIdentity(r.Context(), sess.Identity)))
	}
}
