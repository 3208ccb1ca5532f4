package auth

import (
	"fmt"
	"os/user"
)

// RootSystemAccount identifies the local system account as uid 0,
// which is the identity the daemon itself runs as and the one a
// privileged service manager connects with.
type RootSystemAccount struct{}

// IsSystem implements SystemAccount.
func (RootSystemAccount) IsSystem(uid uint32) bool { return uid == 0 }

// OSGroupMembership answers group-membership questions using the
// standard os/user lookups (NSS-backed on Linux: /etc/group, LDAP, etc.
// depending on system configuration).
type OSGroupMembership struct{}

// IsMember implements GroupMembership.
func (OSGroupMembership) IsMember(uid uint32, group string) (bool, error) {
	u, err := user.LookupId(fmt.Sprint(uid))
	if err != nil {
		return false, fmt.Errorf("looking up uid %d: %w", uid, err)
	}

	g, err := user.LookupGroup(group)
	if err != nil {
		return false, fmt.Errorf("looking up group %q: %w", group, err)
	}

	gids, err := u.GroupIds()
	if err != nil {
		return false, fmt.Errorf("listing groups for uid %d: %w", uid, err)
	}
	for _, gid := range gids {
		if gid == g.Gid {
			return true, nil
		}
	}
	return u.Gid == g.Gid, nil
}
