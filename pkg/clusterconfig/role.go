package clusterconfig

import (
	"fmt"
)

// Role identifies the configuration overlay applied on top of the base cluster settings.
type Role int

const (
	RoleManager Role = iota
	RoleData
	RoleSeedManager
	RoleSeedData
	RoleClient
	RoleML
	roleCount
)

var roleNames = [roleCount]string{
	RoleManager:     "manager",
	RoleData:        "data",
	RoleSeedManager: "seedManager",
	RoleSeedData:    "seedData",
	RoleClient:      "client",
	RoleML:          "ml",
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

func (r Role) Valid() bool {
	return r >= 0 && r < roleCount
}

// IsSeed returns true for the two roles that bootstrap the cluster.
func (r Role) IsSeed() bool {
	return r == RoleSeedManager || r == RoleSeedData
}

// Roles returns all known roles in declaration order.
func Roles() []Role {
	roles := make([]Role, 0, roleCount)
	for r := Role(0); r < roleCount; r++ {
		roles = append(roles, r)
	}
	return roles
}

// ParseRole maps a role name to its Role. Names are case sensitive.
func ParseRole(name string) (Role, error) {
	for r, n := range roleNames {
		if n == name {
			return Role(r), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownRole, name)
}
