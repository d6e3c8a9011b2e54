package domain

// Role represents how a participant takes part in a room
type Role string

const (
	RolePlayer   Role = "player"
	RoleObserver Role = "observer"
)

// ParseRole maps a wire value to a Role, defaulting to player
func ParseRole(s string) Role {
	if Role(s) == RoleObserver {
		return RoleObserver
	}
	return RolePlayer
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsObserver returns true if this role cannot vote
func (r Role) IsObserver() bool {
	return r == RoleObserver
}
