// Package gate implements the per-session entitlement gate.
//
// A Gate starts in Loading, asks the entitlement service once per activation,
// and settles in Granted or Denied. An is_expired answer is a lockout: the
// session stays Denied until Logout. Activating with a different identity
// cancels the outstanding check, and results that arrive for a superseded
// activation are discarded by comparing request sequence numbers.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
)

// ErrNoSession is returned for an unknown session id.
var ErrNoSession = errors.New("session not found")

// ErrIdentityRequired is returned by Activate for an empty identity.
var ErrIdentityRequired = errors.New("identity is required")

// Verifier checks an identity's entitlement. Implementations must honor ctx.
type Verifier interface {
	Verify(ctx context.Context, identity string) (model.Entitlement, error)
}

// Authenticator ends an identity's session at the identity provider.
type Authenticator interface {
	Logout(ctx context.Context, identity string) error
}

// Policy selects what a failed verification call means.
type Policy string

const (
	// FailClosed treats a verification error as Denied until a fresh check succeeds.
	FailClosed Policy = "fail-closed"
	// FailOpen treats a verification error as Granted and records the error.
	FailOpen Policy = "fail-open"
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", FailClosed:
		return FailClosed, nil
	case FailOpen:
		return FailOpen, nil
	}
	return "", fmt.Errorf("unknown gate policy %q", s)
}

// VerificationError is a failed entitlement check: transport, response
// parsing or timeout.
type VerificationError struct {
	Identity string
	Err      error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verifying entitlement for %q: %v", e.Identity, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Options configures a Gate.
type Options struct {
	// Timeout bounds every verification call. Default: 10 seconds.
	Timeout time.Duration

	// Policy decides the outcome of a failed verification. Default: FailClosed.
	Policy Policy

	// OnChange is called after every state transition with the new snapshot.
	// Called outside the lock.
	OnChange func(model.Session)

	Logger *slog.Logger
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Policy == "" {
		o.Policy = FailClosed
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Gate is the state machine for one session.
type Gate struct {
	id       string
	verifier Verifier
	auth     Authenticator
	opts     Options

	mu          sync.Mutex
	identity    string
	state       model.SessionState
	reason      model.DenyReason
	lastErr     string
	seq         uint64
	cancel      context.CancelFunc // non-nil while a verification is in flight
	activatedAt time.Time
	resolvedAt  *time.Time
	changed     chan struct{} // closed and replaced on every transition
}

// New creates a Gate in Loading with no identity. auth may be nil.
func New(id string, verifier Verifier, auth Authenticator, opts Options) *Gate {
	return &Gate{
		id:       id,
		verifier: verifier,
		auth:     auth,
		opts:     opts.withDefaults(),
		state:    model.SessionLoading,
		changed:  make(chan struct{}),
	}
}

// ID returns the session id.
func (g *Gate) ID() string { return g.id }

// Activate starts verification for identity and returns the current snapshot
// without waiting for the result.
//
// Repeated activation with the same identity is idempotent: it never issues a
// second call while one is in flight and never re-verifies a Granted or an
// expired Denied session. A fail-closed Denied session is re-verified. A
// different identity cancels any outstanding check and starts over in Loading.
func (g *Gate) Activate(identity string) (model.Session, error) {
	if identity == "" {
		return model.Session{}, ErrIdentityRequired
	}

	g.mu.Lock()
	if identity == g.identity && !g.retryableLocked() {
		snap := g.snapshotLocked()
		g.mu.Unlock()
		return snap, nil
	}

	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.seq++
	g.identity = identity
	g.state = model.SessionLoading
	g.reason = ""
	g.lastErr = ""
	g.activatedAt = g.opts.Now().UTC()
	g.resolvedAt = nil

	ctx, cancel := context.WithTimeout(context.Background(), g.opts.Timeout)
	g.cancel = cancel
	go g.verify(ctx, cancel, g.seq, identity)

	snap := g.notifyLocked()
	g.mu.Unlock()

	g.opts.Logger.Debug("session verification started", "session_id", g.id, "identity", identity, "seq", snap.Seq)
	g.emit(snap)
	return snap, nil
}

// retryableLocked reports whether activation with the current identity must
// issue a fresh verification.
func (g *Gate) retryableLocked() bool {
	switch g.state {
	case model.SessionLoading:
		return g.cancel == nil
	case model.SessionDenied:
		return g.reason == model.DenyVerificationFailed
	}
	return false
}

func (g *Gate) verify(ctx context.Context, cancel context.CancelFunc, seq uint64, identity string) {
	defer cancel()
	ent, err := g.verifier.Verify(ctx, identity)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", g.opts.Timeout, err)
	}
	g.resolve(seq, identity, ent, err)
}

func (g *Gate) resolve(seq uint64, identity string, ent model.Entitlement, err error) {
	g.mu.Lock()
	if seq != g.seq || g.state != model.SessionLoading {
		g.mu.Unlock()
		g.opts.Logger.Debug("discarding stale verification result", "session_id", g.id, "identity", identity, "seq", seq)
		return
	}
	g.cancel = nil

	switch {
	case err != nil:
		verr := &VerificationError{Identity: identity, Err: err}
		g.lastErr = verr.Error()
		if g.opts.Policy == FailOpen {
			g.state = model.SessionGranted
		} else {
			g.state = model.SessionDenied
			g.reason = model.DenyVerificationFailed
		}
		g.opts.Logger.Warn("entitlement verification failed",
			"session_id", g.id, "identity", identity, "policy", string(g.opts.Policy), "error", err)
	case ent.IsExpired:
		g.state = model.SessionDenied
		g.reason = model.DenyExpired
		g.lastErr = ""
	default:
		g.state = model.SessionGranted
		g.lastErr = ""
	}
	now := g.opts.Now().UTC()
	g.resolvedAt = &now

	snap := g.notifyLocked()
	g.mu.Unlock()
	g.emit(snap)
}

// Logout tears the session down at the identity provider and locally. Any
// outstanding verification is cancelled and its result discarded; the next
// Activate starts fresh in Loading. The local teardown happens even when the
// identity provider call fails.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	identity := g.identity
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.seq++
	g.identity = ""
	g.state = model.SessionLoading
	g.reason = ""
	g.lastErr = ""
	g.resolvedAt = nil
	snap := g.notifyLocked()
	g.mu.Unlock()

	g.emit(snap)

	if identity == "" || g.auth == nil {
		return nil
	}
	if err := g.auth.Logout(ctx, identity); err != nil {
		return fmt.Errorf("logging out %q: %w", identity, err)
	}
	return nil
}

// Snapshot returns the current session state.
func (g *Gate) Snapshot() model.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Changed returns a channel that is closed on the next state transition.
func (g *Gate) Changed() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.changed
}

// Wait blocks until the session leaves Loading or ctx is done, and returns
// the latest snapshot either way. The error is ctx.Err() on expiry.
func (g *Gate) Wait(ctx context.Context) (model.Session, error) {
	for {
		g.mu.Lock()
		snap := g.snapshotLocked()
		ch := g.changed
		g.mu.Unlock()
		if snap.State != model.SessionLoading {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return g.Snapshot(), ctx.Err()
		}
	}
}

// stop cancels any outstanding verification without changing state.
func (g *Gate) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.seq++
}

func (g *Gate) notifyLocked() model.Session {
	close(g.changed)
	g.changed = make(chan struct{})
	return g.snapshotLocked()
}

func (g *Gate) snapshotLocked() model.Session {
	s := model.Session{
		ID:          g.id,
		Identity:    g.identity,
		State:       g.state,
		Reason:      g.reason,
		LastError:   g.lastErr,
		Seq:         g.seq,
		ActivatedAt: g.activatedAt,
	}
	if g.resolvedAt != nil {
		t := *g.resolvedAt
		s.ResolvedAt = &t
	}
	return s
}

func (g *Gate) emit(s model.Session) {
	if g.opts.OnChange != nil {
		g.opts.OnChange(s)
	}
}
