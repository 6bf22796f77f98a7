package auth

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"user", "admin", "superAdmin"} {
		if _, ok := ParseRole(valid); !ok {
			t.Fatalf("expected %q to parse", valid)
		}
	}
	for _, invalid := range []string{"", "User", "ADMIN", "root", "superadmin"} {
		if _, ok := ParseRole(invalid); ok {
			t.Fatalf("expected %q to be rejected", invalid)
		}
	}
}

func TestRoleAssignable(t *testing.T) {
	if !RoleUser.Assignable() || !RoleAdmin.Assignable() {
		t.Fatalf("expected user and admin to be assignable")
	}
	if RoleSuperAdmin.Assignable() {
		t.Fatalf("superAdmin must never be assignable")
	}
}

func TestHasAnyRole(t *testing.T) {
	held := []string{"user", "admin"}
	if !HasAnyRole([]Role{RoleAdmin}, held) {
		t.Fatalf("expected admin to match")
	}
	if HasAnyRole([]Role{RoleSuperAdmin}, held) {
		t.Fatalf("superAdmin should not match")
	}
	if HasAnyRole([]Role{RoleAdmin}, nil) {
		t.Fatalf("no held roles should never match")
	}
	if HasAnyRole(nil, held) {
		t.Fatalf("no required roles should never match")
	}
}

func TestRoleListUnmarshalJSON(t *testing.T) {
	var fromArray RoleList
	if err := json.Unmarshal([]byte(`["user","admin"]`), &fromArray); err != nil {
		t.Fatalf("array form: %v", err)
	}
	if len(fromArray) != 2 || fromArray[0] != "user" {
		t.Fatalf("unexpected roles: %v", fromArray)
	}

	var fromScalar RoleList
	if err := json.Unmarshal([]byte(`"admin"`), &fromScalar); err != nil {
		t.Fatalf("scalar form: %v", err)
	}
	if len(fromScalar) != 1 || fromScalar[0] != "admin" {
		t.Fatalf("unexpected roles: %v", fromScalar)
	}

	var fromEmpty RoleList
	if err := json.Unmarshal([]byte(`""`), &fromEmpty); err != nil {
		t.Fatalf("empty scalar: %v", err)
	}
	if len(fromEmpty) != 0 {
		t.Fatalf("expected empty role list, got %v", fromEmpty)
	}

	var bad RoleList
	if err := json.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Fatalf("expected error for numeric claim")
	}
}
