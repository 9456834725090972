package permission

import "testing"

func TestPolicyAllows(t *testing.T) {
	p, err := NewPolicy("admin", map[string][]string{"editor": {"tasks.write"}})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	cases := []struct {
		name  string
		role  string
		perms []string
		check string
		want  bool
	}{
		{name: "admin implies all", role: "admin", check: "anything", want: true},
		{name: "explicit permission", role: "user", perms: []string{"tasks.read"}, check: "tasks.read", want: true},
		{name: "missing permission", role: "user", perms: []string{"tasks.read"}, check: "tasks.write", want: false},
		{name: "role grant", role: "editor", check: "tasks.write", want: true},
		{name: "empty name", role: "admin", check: "", want: false},
		{name: "no role", check: "tasks.read", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Allows(tc.role, tc.perms, tc.check); got != tc.want {
				t.Fatalf("Allows(%q, %v, %q) = %v, want %v", tc.role, tc.perms, tc.check, got, tc.want)
			}
		})
	}
}

func TestNewPolicyValidation(t *testing.T) {
	if _, err := NewPolicy(" ", nil); err == nil {
		t.Fatal("expected error for blank admin role")
	}
	if _, err := NewPolicy("admin", map[string][]string{"": {"x"}}); err == nil {
		t.Fatal("expected error for blank role")
	}
	if _, err := NewPolicy("admin", map[string][]string{"r": {""}}); err == nil {
		t.Fatal("expected error for blank permission")
	}
}

func TestNilPolicyUsesDefaultAdminRole(t *testing.T) {
	var p *Policy
	if !p.IsAdmin("admin") || p.IsAdmin("user") {
		t.Fatal("nil policy must treat only the default role as admin")
	}
	if !p.Allows("user", []string{"a"}, "a") {
		t.Fatal("nil policy must still honour explicit permissions")
	}
}
