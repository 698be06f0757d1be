package sflvault

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew_RequiresURL(t *testing.T) {
	_, err := New()
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New() error = %v, want ErrNotConfigured", err)
	}
}

// recordingTransport answers every call with an error and records methods.
type recordingTransport struct {
	methods []string
}

func (r *recordingTransport) Call(_ context.Context, method string, _ []any, _ any) error {
	r.methods = append(r.methods, method)
	return errors.New("offline")
}

func TestWithTransport(t *testing.T) {
	rt := &recordingTransport{}
	alice := newTestIdentity(t, "alice", "p@ss1")
	c, err := New(WithTransport(rt), WithIdentity(alice))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	err = c.Login(t.Context())
	if err == nil || len(rt.methods) != 1 || rt.methods[0] != "sflvault.login" {
		t.Errorf("Login() error = %v, methods = %v", err, rt.methods)
	}
	if errors.Is(err, ErrAuthentication) {
		t.Error("local transport failure reported as authentication failure")
	}
}

func TestClose_Idempotent(t *testing.T) {
	tv := newTestVault(t)
	alice := newTestIdentity(t, "alice", "p@ss1", IdentityKeyCache(time.Minute))
	tv.register(alice, false)
	c := tv.client(alice)

	if err := c.Login(t.Context()); err != nil {
		t.Fatal(err)
	}
	if alice.cachedEnclave() == nil {
		t.Fatal("key not cached")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if alice.cachedEnclave() != nil {
		t.Error("cached key survived Close")
	}
	if c.Session().Authenticated() {
		t.Error("session survived Close")
	}
}
