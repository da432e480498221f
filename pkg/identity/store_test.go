package identity

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_Lookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Add(Principal{ID: "alice", Tenant: "default", Enabled: "Y"})

	p, err := s.Lookup(ctx, "default", "alice")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if p.ID != "alice" || p.Enabled != "Y" {
		t.Errorf("Lookup() = %+v", p)
	}

	// Lookups are tenant-scoped.
	if _, err := s.Lookup(ctx, "acme", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant Lookup() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Lookup(ctx, "default", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup() of unknown account error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_LookupReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Add(Principal{ID: "alice", Tenant: "default"})

	p, err := s.Lookup(ctx, "default", "alice")
	if err != nil {
		t.Fatal(err)
	}
	p.HasLoggedOut = true

	again, err := s.Lookup(ctx, "default", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if again.HasLoggedOut {
		t.Error("mutating a looked-up principal must not leak into the store")
	}
}

func TestMemoryStore_SetLoggedOut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Add(Principal{ID: "alice", Tenant: "default"})

	if err := s.SetLoggedOut(ctx, "default", "alice", true); err != nil {
		t.Fatalf("SetLoggedOut() error = %v", err)
	}
	p, _ := s.Lookup(ctx, "default", "alice")
	if !p.HasLoggedOut {
		t.Error("flag should be set")
	}

	if err := s.SetLoggedOut(ctx, "default", "alice", false); err != nil {
		t.Fatalf("SetLoggedOut() error = %v", err)
	}
	p, _ = s.Lookup(ctx, "default", "alice")
	if p.HasLoggedOut {
		t.Error("flag should be cleared")
	}

	if err := s.SetLoggedOut(ctx, "default", "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetLoggedOut() on unknown account error = %v, want ErrNotFound", err)
	}
}

func TestPrincipal_LoginAllowed(t *testing.T) {
	tests := []struct {
		enabled string
		want    bool
	}{
		{"", true}, // absent flag means enabled
		{"Y", true},
		{"N", false},
		{"X", false},
	}
	for _, tt := range tests {
		p := Principal{ID: "u", Enabled: tt.enabled}
		if got := p.LoginAllowed(); got != tt.want {
			t.Errorf("LoginAllowed() with Enabled=%q = %v, want %v", tt.enabled, got, tt.want)
		}
	}
}
