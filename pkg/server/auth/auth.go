// Package auth authenticates request-server connections: it extracts
// the connecting peer's OS identity from the Unix domain socket via
// SO_PEERCRED and admits the local system account or members of the
// configured administrator group. No bearer tokens exist on this
// transport; the credential being validated is the kernel's own record
// of who opened the connection.
package auth

import (
	"context"
	"fmt"
	"net"
	"os/user"

	"github.com/hearthguard/sentryfw/pkg/result"
)

// Identity is the authenticated caller of one connection.
type Identity struct {
	UID     uint32
	GID     uint32
	PID     int32
	Admin   bool
	System  bool   // the local system account (uid 0)
	Account string // best-effort username; empty if unresolvable
}

// PeerCredSource extracts the raw OS credentials of the peer connected
// to a socket. Implemented by UnixPeerCredSource (SO_PEERCRED) in
// peercred_linux.go; tests substitute a fake.
type PeerCredSource interface {
	PeerCredentials(conn *net.UnixConn) (uid, gid uint32, pid int32, err error)
}

// GroupMembership answers whether a uid belongs to the named group.
// Implemented by OSGroupMembership (os/user) in groups.go; tests
// substitute a fake.
type GroupMembership interface {
	IsMember(uid uint32, group string) (bool, error)
}

// SystemAccount answers whether a uid is the local system account.
// Implemented by RootSystemAccount (uid 0) in groups.go; tests
// substitute a fake.
type SystemAccount interface {
	IsSystem(uid uint32) bool
}

// Authenticator authenticates one connection at a time. The ACL admits
// two categories of caller: the local system account, and members of
// the administrator group. Each is checked independently; the system
// account is admitted even when it belongs to no group.
type Authenticator struct {
	creds      PeerCredSource
	membership GroupMembership
	system     SystemAccount
	adminGroup string
}

// New builds an Authenticator that admits the system account and
// members of adminGroup.
func New(creds PeerCredSource, membership GroupMembership, system SystemAccount, adminGroup string) *Authenticator {
	return &Authenticator{creds: creds, membership: membership, system: system, adminGroup: adminGroup}
}

// Authenticate extracts the peer's credentials from conn and admits the
// caller if it is the local system account or an administrator-group
// member. A nil/empty resolved identity is treated as denied, never as
// "no restriction" (fail-closed).
func (a *Authenticator) Authenticate(conn *net.UnixConn) result.Result[Identity] {
	uid, gid, pid, err := a.creds.PeerCredentials(conn)
	if err != nil {
		return result.Fail[Identity](&result.Error{
			Code:    result.CodeAccessDenied,
			Message: "Access denied: unable to determine peer identity",
			Cause:   err,
		})
	}

	if a.system.IsSystem(uid) {
		return result.Ok(a.identity(uid, gid, pid, true))
	}

	isAdmin, err := a.membership.IsMember(uid, a.adminGroup)
	if err != nil {
		return result.Fail[Identity](&result.Error{
			Code:    result.CodeAccessDenied,
			Message: "Access denied: unable to verify administrator group membership",
			Cause:   err,
		})
	}
	if !isAdmin {
		return result.Fail[Identity](&result.Error{
			Code:    result.CodeAccessDenied,
			Message: fmt.Sprintf("Access denied: uid %d is not the system account or a member of %q", uid, a.adminGroup),
		})
	}

	return result.Ok(a.identity(uid, gid, pid, false))
}

func (a *Authenticator) identity(uid, gid uint32, pid int32, system bool) Identity {
	account := ""
	if u, err := user.LookupId(fmt.Sprint(uid)); err == nil {
		account = u.Username
	}
	return Identity{UID: uid, GID: gid, PID: pid, Admin: true, System: system, Account: account}
}

type ctxKey struct{}

// IntoContext attaches id to ctx for handlers to read the caller's
// identity without threading it through every function signature.
func IntoContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext retrieves the Identity attached by IntoContext.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
