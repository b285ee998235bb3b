package model

// RoleKind is one of the fixed roles a connection can hold
type RoleKind string

const (
	RoleHost      RoleKind = "host"
	RoleCaptain   RoleKind = "captain"
	RoleSpectator RoleKind = "spectator"
)

// Role is the resolved binding of a connection. CaptainID is only set for RoleCaptain.
type Role struct {
	Kind      RoleKind
	CaptainID CaptainID
}

// HostRole returns the host role
func HostRole() Role { return Role{Kind: RoleHost} }

// SpectatorRole returns the spectator role
func SpectatorRole() Role { return Role{Kind: RoleSpectator} }

// CaptainRole returns the role for the given captain
func CaptainRole(id CaptainID) Role { return Role{Kind: RoleCaptain, CaptainID: id} }

// Label is the value sent to clients as roleId: the captain id for captains,
// otherwise the role name
func (r Role) Label() string {
	if r.Kind == RoleCaptain {
		return string(r.CaptainID)
	}
	return string(r.Kind)
}

// IsPrivileged reports whether the role may see the spectator secret
func (r Role) IsPrivileged() bool {
	return r.Kind == RoleHost || r.Kind == RoleCaptain
}
