package gate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alfredjeanlab/jobline/internal/model"
)

func TestRegistry_Lifecycle(t *testing.T) {
	v := newFakeVerifier()
	auth := &fakeAuth{}
	r := NewRegistry(v, auth, quietOptions())

	s, err := r.Create("u1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(s.ID, "ses-") {
		t.Errorf("session id %q lacks ses- prefix", s.ID)
	}
	v.next(t).reply <- verifyResult{}

	g, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := waitResolved(t, g); got.State != model.SessionGranted {
		t.Fatalf("state = %s, want granted", got.State)
	}
	if list := r.List(); len(list) != 1 || list[0].ID != s.ID {
		t.Fatalf("List = %+v", list)
	}

	if err := r.Logout(context.Background(), s.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Get after logout = %v, want ErrNoSession", err)
	}
	if err := r.Logout(context.Background(), s.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second Logout = %v, want ErrNoSession", err)
	}
	if len(auth.identities) != 1 {
		t.Errorf("auth logout calls = %v, want one", auth.identities)
	}
}

func TestRegistry_ActivateUnknown(t *testing.T) {
	r := NewRegistry(newFakeVerifier(), nil, quietOptions())
	if _, err := r.Activate("ses-missing", "u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("got %v, want ErrNoSession", err)
	}
}

func TestRegistry_CreateRequiresIdentity(t *testing.T) {
	r := NewRegistry(newFakeVerifier(), nil, quietOptions())
	if _, err := r.Create(""); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("got %v, want ErrIdentityRequired", err)
	}
	if len(r.List()) != 0 {
		t.Error("failed Create should not register a session")
	}
}

func TestRegistry_CloseCancelsVerifications(t *testing.T) {
	v := newFakeVerifier()
	r := NewRegistry(v, nil, quietOptions())
	if _, err := r.Create("u1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	c := v.next(t)
	r.Close()
	<-c.ctx.Done()
}
