package rbac

import (
	"context"
	"testing"
)

func TestCheckerWildcards(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"admin", "subject:create", true},
		{"admin", "subject:delete", true},
		{"admin", "question:update", true},
		{"admin", "bank:import", true},
		{"admin", "bank:maintain", true},
		{"admin", "bank:drop", false},
		{"student", "subject:create", false},
		{"", "subject:create", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestRoleContext(t *testing.T) {
	ctx := context.Background()
	if got := RoleFromContext(ctx); got != "" {
		t.Fatalf("empty context role = %q", got)
	}
	ctx = WithRole(ctx, "admin")
	if got := RoleFromContext(ctx); got != "admin" {
		t.Fatalf("role = %q", got)
	}
}
