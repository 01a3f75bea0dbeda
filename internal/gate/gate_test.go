package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
)

type verifyResult struct {
	ent model.Entitlement
	err error
}

type verifyCall struct {
	identity string
	ctx      context.Context
	reply    chan verifyResult
}

// fakeVerifier hands every call to the test through calls and blocks until
// the test replies. With ignoreCtx set it keeps waiting after cancellation,
// which lets tests deliver results late.
type fakeVerifier struct {
	calls     chan verifyCall
	ignoreCtx bool
	count     atomic.Int32
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{calls: make(chan verifyCall, 16)}
}

func (f *fakeVerifier) Verify(ctx context.Context, identity string) (model.Entitlement, error) {
	f.count.Add(1)
	c := verifyCall{identity: identity, ctx: ctx, reply: make(chan verifyResult, 1)}
	f.calls <- c
	if f.ignoreCtx {
		r := <-c.reply
		return r.ent, r.err
	}
	select {
	case r := <-c.reply:
		return r.ent, r.err
	case <-ctx.Done():
		return model.Entitlement{}, ctx.Err()
	}
}

func (f *fakeVerifier) next(t *testing.T) verifyCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification call")
		return verifyCall{}
	}
}

func (f *fakeVerifier) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected verification call for %q", c.identity)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeAuth struct {
	mu         sync.Mutex
	identities []string
	err        error
}

func (a *fakeAuth) Logout(_ context.Context, identity string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identities = append(a.identities, identity)
	return a.err
}

func quietOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newTestGate(v Verifier, auth Authenticator, opts Options) *Gate {
	if opts.Logger == nil {
		opts.Logger = quietOptions().Logger
	}
	return New("ses-test", v, auth, opts)
}

func waitResolved(t *testing.T, g *Gate) model.Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := g.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v (state %s)", err, s.State)
	}
	return s
}

func mustActivate(t *testing.T, g *Gate, identity string) model.Session {
	t.Helper()
	s, err := g.Activate(identity)
	if err != nil {
		t.Fatalf("Activate(%q): %v", identity, err)
	}
	return s
}

func TestActivate_GrantedThenDeniedForNewIdentity(t *testing.T) {
	v := newFakeVerifier()
	g := newTestGate(v, nil, Options{})

	s := mustActivate(t, g, "u1")
	if s.State != model.SessionLoading {
		t.Fatalf("state after Activate = %s, want loading", s.State)
	}
	c := v.next(t)
	if c.identity != "u1" {
		t.Fatalf("verified %q, want u1", c.identity)
	}
	c.reply <- verifyResult{ent: model.Entitlement{IsExpired: false}}
	if s := waitResolved(t, g); s.State != model.SessionGranted || s.Identity != "u1" {
		t.Fatalf("got %s/%s, want granted/u1", s.State, s.Identity)
	}

	mustActivate(t, g, "u2")
	c = v.next(t)
	c.reply <- verifyResult{ent: model.Entitlement{IsExpired: true}}
	s = waitResolved(t, g)
	if s.State != model.SessionDenied || s.Reason != model.DenyExpired {
		t.Fatalf("got %s/%s, want denied/expired", s.State, s.Reason)
	}
	if s.ResolvedAt == nil {
		t.Error("ResolvedAt should be set once resolved")
	}

	// Same identity again without logout: stays denied, no new call.
	s = mustActivate(t, g, "u2")
	if s.State != model.SessionDenied {
		t.Fatalf("state after re-activation = %s, want denied", s.State)
	}
	v.expectNoCall(t)
	if n := v.count.Load(); n != 2 {
		t.Errorf("verifier called %d times, want 2", n)
	}
}

func TestActivate_IdempotentWhileLoading(t *testing.T) {
	v := newFakeVerifier()
	g := newTestGate(v, nil, Options{})

	first := mustActivate(t, g, "u1")
	c := v.next(t)
	for i := 0; i < 5; i++ {
		s := mustActivate(t, g, "u1")
		if s.Seq != first.Seq {
			t.Fatalf("seq changed from %d to %d on repeated activation", first.Seq, s.Seq)
		}
	}
	v.expectNoCall(t)

	c.reply <- verifyResult{}
	waitResolved(t, g)
	mustActivate(t, g, "u1")
	v.expectNoCall(t)
}

func TestActivate_ConcurrentSameIdentity(t *testing.T) {
	v := newFakeVerifier()
	g := newTestGate(v, nil, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Activate("u1")
		}()
	}
	wg.Wait()

	c := v.next(t)
	v.expectNoCall(t)
	c.reply <- verifyResult{}
	if s := waitResolved(t, g); s.State != model.SessionGranted {
		t.Fatalf("state = %s, want granted", s.State)
	}
}

func TestActivate_IdentityChangeCancelsOutstanding(t *testing.T) {
	v := newFakeVerifier()
	g := newTestGate(v, nil, Options{})

	mustActivate(t, g, "u1")
	c1 := v.next(t)
	mustActivate(t, g, "u2")
	c2 := v.next(t)

	select {
	case <-c1.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("outstanding verification for u1 was not cancelled")
	}
	if s := g.Snapshot(); s.State != model.SessionLoading || s.Identity != "u2" {
		t.Fatalf("got %s/%s, want loading/u2", s.State, s.Identity)
	}

	c2.reply <- verifyResult{}
	if s := waitResolved(t, g); s.State != model.SessionGranted || s.Identity != "u2" {
		t.Fatalf("got %s/%s, want granted/u2", s.State, s.Identity)
	}
}

func TestActivate_LateResultDiscarded(t *testing.T) {
	v := newFakeVerifier()
	v.ignoreCtx = true
	g := newTestGate(v, nil, Options{})

	mustActivate(t, g, "u1")
	c1 := v.next(t)
	mustActivate(t, g, "u2")
	c2 := v.next(t)

	// u1's answer arrives after u2 superseded it and must not apply.
	c1.reply <- verifyResult{ent: model.Entitlement{IsExpired: true}}
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if s := g.Snapshot(); s.State != model.SessionLoading || s.Identity != "u2" {
			t.Fatalf("late result applied: %s/%s", s.State, s.Identity)
		}
		time.Sleep(5 * time.Millisecond)
	}

	c2.reply <- verifyResult{}
	if s := waitResolved(t, g); s.State != model.SessionGranted || s.Identity != "u2" {
		t.Fatalf("got %s/%s, want granted/u2", s.State, s.Identity)
	}
}

func TestLogout_ResetsDeniedSession(t *testing.T) {
	v := newFakeVerifier()
	auth := &fakeAuth{}
	g := newTestGate(v, auth, Options{})

	mustActivate(t, g, "u2")
	v.next(t).reply <- verifyResult{ent: model.Entitlement{IsExpired: true}}
	waitResolved(t, g)

	if err := g.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(auth.identities) != 1 || auth.identities[0] != "u2" {
		t.Fatalf("auth logout calls = %v, want [u2]", auth.identities)
	}
	if s := g.Snapshot(); s.State != model.SessionLoading || s.Identity != "" {
		t.Fatalf("after logout got %s/%q, want loading with no identity", s.State, s.Identity)
	}

	mustActivate(t, g, "u2")
	v.next(t).reply <- verifyResult{}
	if s := waitResolved(t, g); s.State != model.SessionGranted {
		t.Fatalf("state after fresh activation = %s, want granted", s.State)
	}
}

func TestLogout_CancelsPendingVerification(t *testing.T) {
	v := newFakeVerifier()
	v.ignoreCtx = true
	g := newTestGate(v, nil, Options{})

	mustActivate(t, g, "u1")
	c := v.next(t)
	if err := g.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	<-c.ctx.Done()
	c.reply <- verifyResult{}

	time.Sleep(20 * time.Millisecond)
	if s := g.Snapshot(); s.State != model.SessionLoading || s.Identity != "" {
		t.Fatalf("result after logout applied: %s/%q", s.State, s.Identity)
	}
}

func TestLogout_AuthErrorStillTearsDown(t *testing.T) {
	v := newFakeVerifier()
	auth := &fakeAuth{err: errors.New("idp unavailable")}
	g := newTestGate(v, auth, Options{})

	mustActivate(t, g, "u1")
	v.next(t).reply <- verifyResult{}
	waitResolved(t, g)

	if err := g.Logout(context.Background()); err == nil {
		t.Fatal("expected logout error")
	}
	if s := g.Snapshot(); s.Identity != "" || s.State != model.SessionLoading {
		t.Fatalf("session not torn down: %s/%q", s.State, s.Identity)
	}
}

func TestVerificationFailurePolicy(t *testing.T) {
	for _, tc := range []struct {
		name       string
		policy     Policy
		wantState  model.SessionState
		wantReason model.DenyReason
	}{
		{"FailClosed", FailClosed, model.SessionDenied, model.DenyVerificationFailed},
		{"FailOpen", FailOpen, model.SessionGranted, ""},
		{"DefaultIsFailClosed", "", model.SessionDenied, model.DenyVerificationFailed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v := newFakeVerifier()
			g := newTestGate(v, nil, Options{Policy: tc.policy})

			mustActivate(t, g, "u1")
			v.next(t).reply <- verifyResult{err: errors.New("connection refused")}
			s := waitResolved(t, g)
			if s.State != tc.wantState || s.Reason != tc.wantReason {
				t.Fatalf("got %s/%s, want %s/%s", s.State, s.Reason, tc.wantState, tc.wantReason)
			}
			if !strings.Contains(s.LastError, "connection refused") {
				t.Errorf("LastError = %q, want it to mention the cause", s.LastError)
			}
		})
	}
}

func TestFailClosed_ActivateRetries(t *testing.T) {
	v := newFakeVerifier()
	g := newTestGate(v, nil, Options{Policy: FailClosed})

	mustActivate(t, g, "u1")
	v.next(t).reply <- verifyResult{err: errors.New("503")}
	waitResolved(t, g)

	s := mustActivate(t, g, "u1")
	if s.State != model.SessionLoading {
		t.Fatalf("retry state = %s, want loading", s.State)
	}
	v.next(t).reply <- verifyResult{}
	if s := waitResolved(t, g); s.State != model.SessionGranted || s.LastError != "" {
		t.Fatalf("got %s (last error %q), want granted with no error", s.State, s.LastError)
	}
}

func TestVerification_Timeout(t *testing.T) {
	v := newFakeVerifier()
	g := newTestGate(v, nil, Options{Timeout: 20 * time.Millisecond})

	mustActivate(t, g, "u1")
	v.next(t) // never answered
	s := waitResolved(t, g)
	if s.State != model.SessionDenied || s.Reason != model.DenyVerificationFailed {
		t.Fatalf("got %s/%s, want denied/verification_failed", s.State, s.Reason)
	}
	if !strings.Contains(s.LastError, "timed out") {
		t.Errorf("LastError = %q, want a timeout", s.LastError)
	}
}

func TestActivate_EmptyIdentity(t *testing.T) {
	g := newTestGate(newFakeVerifier(), nil, Options{})
	if _, err := g.Activate(""); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("got %v, want ErrIdentityRequired", err)
	}
}

func TestOnChange(t *testing.T) {
	v := newFakeVerifier()
	var mu sync.Mutex
	var states []model.SessionState
	g := newTestGate(v, nil, Options{OnChange: func(s model.Session) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}})

	mustActivate(t, g, "u1")
	v.next(t).reply <- verifyResult{ent: model.Entitlement{IsExpired: true}}
	waitResolved(t, g)
	mustActivate(t, g, "u1") // no-op, no notification

	mu.Lock()
	defer mu.Unlock()
	want := []model.SessionState{model.SessionLoading, model.SessionDenied}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", states, want)
		}
	}
}

func TestWait_ContextExpiry(t *testing.T) {
	v := newFakeVerifier()
	g := newTestGate(v, nil, Options{})
	mustActivate(t, g, "u1")
	v.next(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s, err := g.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait error = %v, want deadline exceeded", err)
	}
	if s.State != model.SessionLoading {
		t.Errorf("state = %s, want loading", s.State)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", FailClosed, false},
		{"fail-closed", FailClosed, false},
		{"fail-open", FailOpen, false},
		{"open", "", true},
	} {
		got, err := ParsePolicy(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParsePolicy(%q) = %q, %v", tc.in, got, err)
		}
	}
}
