package model

import "time"

// SessionState is the gate state of a single session.
type SessionState string

const (
	// SessionLoading means a verification is outstanding (or not yet issued).
	SessionLoading SessionState = "loading"
	// SessionGranted means the identity's entitlement was confirmed.
	SessionGranted SessionState = "granted"
	// SessionDenied is terminal for the session; only logout leaves it.
	SessionDenied SessionState = "denied"
)

// String returns the string representation of the state.
func (s SessionState) String() string {
	return string(s)
}

// IsValid checks whether the state is a known value.
func (s SessionState) IsValid() bool {
	switch s {
	case SessionLoading, SessionGranted, SessionDenied:
		return true
	}
	return false
}

// Permits reports whether the protected area is reachable in this state.
func (s SessionState) Permits() bool {
	return s == SessionGranted
}

// DenyReason explains why a session ended up Denied.
type DenyReason string

const (
	// DenyExpired is an entitlement check that answered is_expired=true.
	DenyExpired DenyReason = "expired"
	// DenyVerificationFailed is a fail-closed verification error.
	DenyVerificationFailed DenyReason = "verification_failed"
)

// Session is a point-in-time view of one gated session.
type Session struct {
	ID          string       `json:"id"`
	Identity    string       `json:"identity"`
	State       SessionState `json:"state"`
	Reason      DenyReason   `json:"reason,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
	Seq         uint64       `json:"seq"`
	ActivatedAt time.Time    `json:"activated_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}

// Entitlement is the answer of the external entitlement service.
type Entitlement struct {
	IsExpired bool   `json:"is_expired"`
	Message   string `json:"message,omitempty"`
}
