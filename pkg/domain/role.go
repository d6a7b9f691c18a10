package domain

// Role is the closed set of actor roles presented by the identity provider.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at trust boundaries to enforce the allowlist.
// ParseRole failing means the claim is missing or malformed; callers that gate
// privileges on Role must treat that as no privilege (fail closed).
type Role string

const (
	RoleWorker   Role = "worker"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleWorker:   true,
	RoleEmployer: true,
	RoleAdmin:    true,
}

// ParseRole constructs a Role from external input. Returns false for empty or
// unknown values; it deliberately returns no error detail because the only
// correct reaction to a bad role claim is denial.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !validRoles[r] {
		return "", false
	}
	return r, true
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}
