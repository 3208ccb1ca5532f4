package auth

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// UnixPeerCredSource reads SO_PEERCRED off a *net.UnixConn's underlying
// file descriptor. This is Linux-specific; other platforms would need
// their own equivalent (LOCAL_PEERCRED on BSD/Darwin, GetNamedPipeClientProcessId
// on Windows) which this build does not target.
type UnixPeerCredSource struct{}

// PeerCredentials implements PeerCredSource.
func (UnixPeerCredSource) PeerCredentials(conn *net.UnixConn) (uid, gid uint32, pid int32, err error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("obtaining raw connection: %w", err)
	}

	var cred *unix.Ucred
	var sysErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		cred, sysErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return 0, 0, 0, fmt.Errorf("accessing socket descriptor: %w", ctrlErr)
	}
	if sysErr != nil {
		return 0, 0, 0, fmt.Errorf("getsockopt SO_PEERCRED: %w", sysErr)
	}

	return cred.Uid, cred.Gid, cred.Pid, nil
}
