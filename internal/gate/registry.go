package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alfredjeanlab/jobline/internal/idgen"
	"github.com/alfredjeanlab/jobline/internal/model"
)

// Registry owns the live sessions of a server, keyed by session id.
type Registry struct {
	verifier Verifier
	auth     Authenticator
	opts     Options
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Gate
}

// NewRegistry creates an empty registry. Every Gate it creates shares
// verifier, auth and opts.
func NewRegistry(verifier Verifier, auth Authenticator, opts Options) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		verifier: verifier,
		auth:     auth,
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*Gate),
	}
}

// Create opens a new session and activates it for identity.
func (r *Registry) Create(identity string) (model.Session, error) {
	if identity == "" {
		return model.Session{}, ErrIdentityRequired
	}
	id, err := idgen.SessionID()
	if err != nil {
		return model.Session{}, fmt.Errorf("generating session id: %w", err)
	}
	g := New(id, r.verifier, r.auth, r.opts)

	r.mu.Lock()
	r.sessions[id] = g
	r.mu.Unlock()

	r.logger.Info("session created", "session_id", id, "identity", identity)
	return g.Activate(identity)
}

// Get returns the gate for a session id.
func (r *Registry) Get(id string) (*Gate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	return g, nil
}

// Activate re-activates an existing session, possibly with a new identity.
func (r *Registry) Activate(id, identity string) (model.Session, error) {
	g, err := r.Get(id)
	if err != nil {
		return model.Session{}, err
	}
	return g.Activate(identity)
}

// Logout ends a session and forgets it. The session is removed even when
// the identity provider rejects the logout.
func (r *Registry) Logout(ctx context.Context, id string) error {
	r.mu.Lock()
	g, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	r.logger.Info("session logged out", "session_id", id)
	return g.Logout(ctx)
}

// List returns snapshots of all live sessions ordered by id.
func (r *Registry) List() []model.Session {
	r.mu.RLock()
	gates := make([]*Gate, 0, len(r.sessions))
	for _, g := range r.sessions {
		gates = append(gates, g)
	}
	r.mu.RUnlock()

	out := make([]model.Session, 0, len(gates))
	for _, g := range gates {
		out = append(out, g.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close cancels every outstanding verification.
func (r *Registry) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.sessions {
		g.stop()
	}
}
