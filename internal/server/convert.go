package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/jobline/internal/gate"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errSessionRequired = errors.New("session id is required")
	errUnknownSession  = errors.New("unknown or expired session")
	errGateDisabled    = errors.New("session gate is disabled")
)

// accessError is a lane request from a session that is not Granted.
type accessError struct {
	session model.Session
}

func (e *accessError) Error() string {
	if e.session.State == model.SessionLoading {
		return "entitlement verification pending"
	}
	if e.session.Reason == model.DenyVerificationFailed {
		return "access denied: entitlement could not be verified"
	}
	return "access denied: entitlement expired"
}

// actorMismatchError is a lane move naming an actor other than the identity
// of the session that authorized it.
type actorMismatchError struct {
	identity string
	claimed  string
}

func (e *actorMismatchError) Error() string {
	return fmt.Sprintf("actor %q does not match session identity %q", e.claimed, e.identity)
}

// errorCode classifies err for both transports.
func errorCode(err error) (codes.Code, int) {
	var ie inputError
	var ve *model.ValidationError
	var ae *accessError
	var me *actorMismatchError
	switch {
	case errors.As(err, &ie), errors.As(err, &ve),
		errors.Is(err, store.ErrUnknownLane), errors.Is(err, gate.ErrIdentityRequired):
		return codes.InvalidArgument, http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, gate.ErrNoSession):
		return codes.NotFound, http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return codes.AlreadyExists, http.StatusConflict
	case errors.Is(err, errSessionRequired), errors.Is(err, errUnknownSession):
		return codes.Unauthenticated, http.StatusUnauthorized
	case errors.As(err, &ae):
		if ae.session.State == model.SessionLoading {
			return codes.FailedPrecondition, http.StatusConflict
		}
		return codes.PermissionDenied, http.StatusForbidden
	case errors.As(err, &me):
		return codes.PermissionDenied, http.StatusForbidden
	case errors.Is(err, errGateDisabled):
		return codes.Unimplemented, http.StatusNotImplemented
	}
	return codes.Internal, http.StatusInternalServerError
}

// storeError maps store and gate errors to gRPC status codes.
func storeError(err error, op string) error {
	if err == nil {
		return nil
	}
	code, _ := errorCode(err)
	if code == codes.Internal {
		slog.Error("request failed", "op", op, "error", err)
		return status.Errorf(codes.Internal, "failed to %s: %v", op, err)
	}
	return status.Error(code, err.Error())
}

// writeStoreError maps store and gate errors to an HTTP error response.
func writeStoreError(w http.ResponseWriter, err error, op string) {
	_, httpStatus := errorCode(err)
	var ae *accessError
	switch {
	case httpStatus == http.StatusInternalServerError:
		slog.Error("request failed", "op", op, "error", err)
		writeError(w, httpStatus, fmt.Sprintf("failed to %s: %v", op, err))
	case errors.As(err, &ae):
		writeJSON(w, httpStatus, map[string]string{
			"error":  ae.Error(),
			"state":  string(ae.session.State),
			"reason": string(ae.session.Reason),
		})
	default:
		writeError(w, httpStatus, err.Error())
	}
}
