package auth

import "encoding/json"

// Role is one of the closed set of profile roles. There is no permission
// hierarchy behind these; authorization is a flat membership check.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// ParseRole maps a raw string onto the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return Role(s), true
	}
	return "", false
}

// Assignable reports whether a role may be granted through the
// role-assignment operation. superAdmin is never assignable, regardless of
// who asks.
func (r Role) Assignable() bool {
	return r == RoleUser || r == RoleAdmin
}

// HasAnyRole succeeds iff the intersection of required and held roles is
// non-empty.
func HasAnyRole(required []Role, held []string) bool {
	for _, want := range required {
		for _, have := range held {
			if string(want) == have {
				return true
			}
		}
	}
	return false
}

// RoleList tolerates a scalar role claim: older tokens carried a single
// string where newer ones carry an array.
type RoleList []string

func (r *RoleList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*r = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one == "" {
		*r = nil
		return nil
	}
	*r = RoleList{one}
	return nil
}
