// Package rbac enforces role checks for HTTP handlers.
//
// The cooperative has three coarse roles; permission granularity beyond that
// lives in handler-level ownership checks (a member may only read their own
// account).
package rbac

// Role names stored on users and copied into the session at login.
const (
	RoleAdmin    = "admin"
	RolePengurus = "pengurus"
	RoleMember   = "member"
)

// staff groups the roles allowed to operate the ledger on behalf of members.
var staff = []string{RoleAdmin, RolePengurus}

// Staff returns the staff role set.
func Staff() []string {
	return staff
}
