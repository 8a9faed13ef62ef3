package namespace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/sowilo/internal/apperr"
)

func TestSanitizeIdentity(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"alice", "alice", false},
		{"  Alice  ", "alice", false},
		{"a.b_c-9", "a.b_c-9", false},
		{"ab", "", true},                     // too short
		{"", "", true},                       // empty
		{"has space", "", true},              // disallowed char
		{"../escape", "", true},              // traversal attempt
		{"UPPER/lower", "", true},            // slash
		{string(make([]byte, 70)), "", true}, // too long
	}
	for _, c := range cases {
		got, err := SanitizeIdentity(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("SanitizeIdentity(%q): expected error", c.in)
			} else if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("SanitizeIdentity(%q): error = %v, want ErrValidation", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("SanitizeIdentity(%q): unexpected error %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("SanitizeIdentity(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolve_SingleMode(t *testing.T) {
	r := NewResolver(ModeSingle, "/data", "/site")
	ns, err := r.Resolve("anything")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ns.BasePath != "" {
		t.Errorf("single mode base path = %q, want empty", ns.BasePath)
	}
	if ns.RawDir != filepath.Join("/data", "notes") {
		t.Errorf("raw dir = %q", ns.RawDir)
	}
	if ns.OutDir != "/site" {
		t.Errorf("out dir = %q", ns.OutDir)
	}
}

func TestResolve_SingleModeCollapsesTenant(t *testing.T) {
	r := NewResolver(ModeSingle, "/data", "/site")
	a, err := r.Resolve("alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := r.Resolve("bob")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The shared ledger must be guarded by one lock key regardless of the
	// identity string a caller passes.
	if a.Tenant != "" || b.Tenant != "" {
		t.Errorf("tenants = %q, %q, want both empty", a.Tenant, b.Tenant)
	}
	if a.StatusPath != b.StatusPath {
		t.Errorf("status paths differ: %q vs %q", a.StatusPath, b.StatusPath)
	}
}

func TestResolve_MultiMode(t *testing.T) {
	r := NewResolver(ModeMulti, "/data", "/site")
	ns, err := r.Resolve("Alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ns.Tenant != "alice" {
		t.Errorf("tenant = %q, want alice", ns.Tenant)
	}
	if ns.BasePath != "/alice" {
		t.Errorf("base path = %q, want /alice", ns.BasePath)
	}
	if ns.RawDir != filepath.Join("/data", "users", "alice", "notes") {
		t.Errorf("raw dir = %q", ns.RawDir)
	}
	if ns.OutDir != filepath.Join("/site", "alice") {
		t.Errorf("out dir = %q", ns.OutDir)
	}
}

func TestResolve_MultiModeRejectsBadIdentity(t *testing.T) {
	r := NewResolver(ModeMulti, "/data", "/site")
	if _, err := r.Resolve("../../etc"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
